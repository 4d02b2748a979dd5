package utils

import (
	"crypto/tls"
	"net/http"
	"time"
)

// NewHTTPClient 上游调用共用的 HTTP 客户端。
// 不设置 client 级 Timeout，墙钟超时由每次调用的 context 控制，
// 超时触发时取消 context 即可拆除在途连接。
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: false,
			},
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
