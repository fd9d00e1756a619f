package bitfinex

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	fastshot "github.com/opus-domini/fast-shot"
	"github.com/opus-domini/fast-shot/constant/header"
	"github.com/opus-domini/fast-shot/constant/mime"
	"go.uber.org/zap"

	"lendbot/internal/config"
)

// ErrMissingCredentials 表示缺少 API 凭证，属于致命配置错误。
var ErrMissingCredentials = errors.New("bitfinex: 缺少 API 凭证")

// Client 封装交易所 v2 REST 接口，私有请求采用 HMAC-SHA384 签名。
type Client struct {
	cfg        config.FundingConfig
	httpClient fastshot.ClientHttpMethods
	logger     *zap.Logger
	nonce      func() string
}

// NewClient 构造资金市场客户端。
func NewClient(cfg config.FundingConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, ErrMissingCredentials
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := fastshot.NewClient(cfg.BaseURL).
		Header().AddAccept(mime.JSON).
		Config().SetTimeout(timeout).
		Build()

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger,
		nonce:      millisecondNonce,
	}, nil
}

func millisecondNonce() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// signHeaders 计算私有请求签名。签名串为 /api/<path><nonce><body>。
func (c *Client) signHeaders(pathNoSlash, rawBody, nonce string) map[string]string {
	mac := hmac.New(sha512.New384, []byte(c.cfg.APISecret))
	mac.Write([]byte("/api/" + pathNoSlash + nonce + rawBody))
	signature := hex.EncodeToString(mac.Sum(nil))
	return map[string]string{
		"bfx-nonce":     nonce,
		"bfx-apikey":    c.cfg.APIKey,
		"bfx-signature": signature,
	}
}

func (c *Client) postPrivate(ctx context.Context, pathNoSlash string, body map[string]interface{}) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nonce := c.nonce()
	payload := make(map[string]interface{}, len(body)+1)
	for k, v := range body {
		payload[k] = v
	}
	payload["nonce"] = nonce

	rawBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("bitfinex: 序列化请求体失败: %w", err)
	}

	headers := c.signHeaders(pathNoSlash, string(rawBody), nonce)
	req := c.httpClient.POST("/" + pathNoSlash).
		Header().Add("content-type", "application/json")
	for k, v := range headers {
		req = req.Header().Add(header.Type(k), v)
	}

	resp, err := req.Body().AsString(string(rawBody)).Send()
	if err != nil {
		return nil, fmt.Errorf("bitfinex: 请求 %s 失败: %w", pathNoSlash, err)
	}
	if resp.Status().IsError() {
		text, _ := resp.Body().AsString()
		return nil, fmt.Errorf("bitfinex: %s 返回错误: %s", pathNoSlash, text)
	}

	var raw json.RawMessage
	if err := resp.Body().AsJSON(&raw); err != nil {
		return nil, fmt.Errorf("bitfinex: 解析 %s 响应失败: %w", pathNoSlash, err)
	}
	return raw, nil
}

func (c *Client) getPublic(ctx context.Context, path string, params map[string]string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := c.httpClient.GET(path)
	for k, v := range params {
		req = req.Query().AddParam(k, v)
	}

	resp, err := req.Send()
	if err != nil {
		return nil, fmt.Errorf("bitfinex: 请求 %s 失败: %w", path, err)
	}
	if resp.Status().IsError() {
		text, _ := resp.Body().AsString()
		return nil, fmt.Errorf("bitfinex: %s 返回错误: %s", path, text)
	}

	var raw json.RawMessage
	if err := resp.Body().AsJSON(&raw); err != nil {
		return nil, fmt.Errorf("bitfinex: 解析 %s 响应失败: %w", path, err)
	}
	return raw, nil
}
