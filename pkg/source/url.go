package source

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// IsSafeURL は写真の URL が外部の http(s) ホストを指しているかを確認します。
// プライベート、ループバック、リンクローカル、未指定のアドレスに解決されるホストは拒否します。
func IsSafeURL(rawURL string) (bool, error) {
	u, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return false, fmt.Errorf("URLを解析できません: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false, fmt.Errorf("許可されていないスキームです: %s", u.Scheme)
	}

	host := u.Hostname()
	ips := []net.IP{net.ParseIP(host)}
	if ips[0] == nil {
		if ips, err = net.LookupIP(host); err != nil {
			return false, fmt.Errorf("ホスト %q の名前解決に失敗しました: %w", host, err)
		}
	}
	for _, ip := range ips {
		if restricted(ip) {
			return false, fmt.Errorf("内部ネットワークの写真は取得できません: %s", ip)
		}
	}
	return true, nil
}

func restricted(ip net.IP) bool {
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}

// isHTTP は ref が HTTP(S) の URL かどうかを返します。
func isHTTP(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
