package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"hyperrecruit/internal/config"

	"github.com/cloudwego/eino/components/embedding"
)

// AliyunEmbedder 实现 cloudwego/eino 的 embedding.Embedder 接口，
// 走DashScope的OpenAI兼容端点
type AliyunEmbedder struct {
	apiKey     string
	model      string
	dimensions int
	httpClient *http.Client
	baseURL    string
	logger     *log.Logger
}

// NewAliyunEmbedder 创建阿里云Embedder
func NewAliyunEmbedder(apiKey string, embeddingCfg config.EmbeddingConfig) (*AliyunEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API密钥不能为空")
	}

	model := embeddingCfg.Model
	if model == "" {
		model = "text-embedding-v3"
	}
	baseURL := embeddingCfg.BaseURL
	if baseURL == "" {
		baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/embeddings"
	}

	return &AliyunEmbedder{
		apiKey:     apiKey,
		model:      model,
		dimensions: embeddingCfg.Dimensions,
		httpClient: &http.Client{},
		baseURL:    baseURL,
		logger:     log.New(os.Stderr, "[AliyunEmbedder] ", log.LstdFlags|log.Lshortfile),
	}, nil
}

// Model 返回嵌入器使用的模型名
func (a *AliyunEmbedder) Model() string {
	return a.model
}

// GetDimensions 返回嵌入器配置的向量维度
func (a *AliyunEmbedder) GetDimensions() int {
	return a.dimensions
}

// aliyunEmbeddingRequest OpenAI兼容的请求结构
type aliyunEmbeddingRequest struct {
	Input          interface{} `json:"input"` // string 或 []string
	Model          string      `json:"model"`
	Dimensions     int         `json:"dimensions,omitempty"`
	EncodingFormat string      `json:"encoding_format,omitempty"`
}

// aliyunEmbeddingResponse OpenAI兼容的响应结构
type aliyunEmbeddingResponse struct {
	Object string            `json:"object"`
	Data   []aliyunDataEntry `json:"data"`
	Model  string            `json:"model"`
	Usage  aliyunUsage       `json:"usage"`
	ID     string            `json:"id,omitempty"`
	Error  *aliyunAPIError   `json:"error,omitempty"`
}

type aliyunDataEntry struct {
	Object    string    `json:"object"`
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

type aliyunUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// aliyunAPIError 200响应中携带的API级错误
type aliyunAPIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param"`
	Code    string `json:"code"`
}

// EmbedStrings 将文本转换为向量，实现 embedding.Embedder 接口
func (a *AliyunEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	options := &embedding.Options{}
	embedding.GetCommonOptions(options, opts...)

	effectiveModel := a.model
	if options.Model != nil && *options.Model != "" {
		effectiveModel = *options.Model
	}

	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	var inputBody interface{}
	if len(texts) == 1 {
		inputBody = texts[0]
	} else {
		inputBody = texts
	}

	reqBody := aliyunEmbeddingRequest{
		Input: inputBody,
		Model: effectiveModel,
	}
	if a.dimensions > 0 {
		reqBody.Dimensions = a.dimensions
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiError aliyunAPIError
		if json.Unmarshal(body, &apiError) == nil && apiError.Message != "" {
			return nil, fmt.Errorf("API调用失败, 状态码: %d, 类型: %s, 错误: %s, Code: %s",
				resp.StatusCode, apiError.Type, apiError.Message, apiError.Code)
		}
		a.logger.Printf("API call failed. Raw response body: %s", string(body))
		return nil, fmt.Errorf("API调用失败, 状态码: %d, 响应: %s", resp.StatusCode, string(body))
	}

	var parsedResp aliyunEmbeddingResponse
	if err := json.Unmarshal(body, &parsedResp); err != nil {
		return nil, fmt.Errorf("解析响应JSON失败: %w", err)
	}

	if parsedResp.Error != nil && parsedResp.Error.Message != "" {
		return nil, fmt.Errorf("API返回错误: 类型=%s, 消息='%s', Code=%s",
			parsedResp.Error.Type, parsedResp.Error.Message, parsedResp.Error.Code)
	}

	outputEmbeddings := make([][]float64, len(parsedResp.Data))
	for i, dataEntry := range parsedResp.Data {
		outputEmbeddings[i] = dataEntry.Embedding
	}

	a.logger.Printf("Embedded %d texts, model=%s, prompt tokens=%d",
		len(texts), parsedResp.Model, parsedResp.Usage.PromptTokens)

	return outputEmbeddings, nil
}
