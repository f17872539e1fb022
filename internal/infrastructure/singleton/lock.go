// Package singleton 通过独占 HTTP 端口保证本机只运行一个服务实例
package singleton

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"
)

const (
	// HealthCheckTimeout 健康检查超时时间
	HealthCheckTimeout = 2 * time.Second
	// ServiceName 健康检查响应中的服务标识
	ServiceName = "drax-tbs"
)

// ErrAlreadyRunning 已有健康实例占用端口
var ErrAlreadyRunning = errors.New("another instance is already running")

// CheckAndLock 尝试独占地址
// 端口空闲时返回 listener；端口被本服务的健康实例占用时返回 ErrAlreadyRunning
func CheckAndLock(addr string) (net.Listener, error) {
	listener, err := net.Listen("tcp", addr)
	if err == nil {
		return listener, nil
	}

	if isAddrInUse(err) {
		if isInstanceRunning(addr) {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("端口 %s 被占用，但健康检查失败，可能是其他程序", addr)
	}

	return nil, fmt.Errorf("监听端口失败: %w", err)
}

// isAddrInUse 检查错误是否是地址已在使用
func isAddrInUse(err error) bool {
	if err == nil {
		return false
	}
	// Windows: WSAEADDRINUSE (10048)
	return errors.Is(err, syscall.EADDRINUSE) || errors.Is(err, syscall.Errno(10048))
}

// healthURL 将监听地址转换为本机健康检查地址
func healthURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Sprintf("http://localhost%s/health", addr)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s/health", net.JoinHostPort(host, port))
}

// isInstanceRunning 检查占用端口的是否为本服务
func isInstanceRunning(addr string) bool {
	client := &http.Client{Timeout: HealthCheckTimeout}

	resp, err := client.Get(healthURL(addr))
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var body struct {
		Data struct {
			Service string `json:"service"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false
	}
	return body.Data.Service == ServiceName
}
