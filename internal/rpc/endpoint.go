package rpc

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"darklake-client/internal/config"
)

// ErrNoHost 表示服务地址缺少主机部分。
var ErrNoHost = errors.New("服务地址缺少主机")

// Endpoint 为解析后的连接目标。
type Endpoint struct {
	URL    string // 最终 URL，仅用于日志
	Target string // host:port，交给 grpc.NewClient
	Secure bool
}

// ResolveEndpoint 根据网络名计算最终地址。
// IsFinalURL 为 false 时，域名主机会加上网络前缀（devnet.api.example.com），IP 保持不变，端口保留。
func ResolveEndpoint(cfg config.ServiceConfig) (Endpoint, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.URL))
	if err != nil {
		return Endpoint{}, fmt.Errorf("解析服务地址失败: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return Endpoint{}, fmt.Errorf("%w: %q", ErrNoHost, cfg.URL)
	}
	port := u.Port()

	final := u.String()
	if !cfg.IsFinalURL {
		if net.ParseIP(host) == nil {
			host = strings.ToLower(cfg.Network) + "." + host
		}
		rebuilt := url.URL{Scheme: u.Scheme, Host: joinHost(host, port)}
		final = rebuilt.String()
	}

	secure := strings.EqualFold(u.Scheme, "https")
	if port == "" {
		port = "80"
		if secure {
			port = "443"
		}
	}

	return Endpoint{
		URL:    final,
		Target: net.JoinHostPort(host, port),
		Secure: secure,
	}, nil
}

func joinHost(host, port string) string {
	if port == "" {
		if strings.Contains(host, ":") {
			return "[" + host + "]"
		}
		return host
	}
	return net.JoinHostPort(host, port)
}
