package fetcher

import (
	"context"
	"fmt"
	"net"

	utls "github.com/refraction-networking/utls"
)

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// fingerprintDialer returns a DialTLSContext that performs the handshake
// with the ClientHello of the named browser profile. ALPN is pinned to
// http/1.1 because net/http cannot speak h2 over a custom TLS conn.
// Proxied HTTPS requests bypass DialTLSContext and use the stock handshake.
func fingerprintDialer(profile string, insecure bool, dial dialFunc) (dialFunc, error) {
	var id utls.ClientHelloID
	switch profile {
	case "chrome":
		id = utls.HelloChrome_Auto
	case "firefox":
		id = utls.HelloFirefox_Auto
	case "safari":
		id = utls.HelloSafari_Auto
	case "edge":
		id = utls.HelloEdge_Auto
	default:
		return nil, fmt.Errorf("unknown tls fingerprint profile %q", profile)
	}

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		spec, err := utls.UTLSIdToSpec(id)
		if err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("utls spec for %s: %w", profile, err)
		}
		for _, ext := range spec.Extensions {
			if alpn, ok := ext.(*utls.ALPNExtension); ok {
				alpn.AlpnProtocols = []string{"http/1.1"}
			}
		}

		uConn := utls.UClient(tcpConn, &utls.Config{ServerName: host, InsecureSkipVerify: insecure}, utls.HelloCustom)
		if err := uConn.ApplyPreset(&spec); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("utls apply preset: %w", err)
		}
		if err := uConn.HandshakeContext(ctx); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("utls handshake failed: %w", err)
		}
		return uConn, nil
	}, nil
}
