package socks

import (
	"context"
	"net"

	"golang.org/x/net/proxy"
)

// AsProxyDialer adapts a proxy address into a golang.org/x/net/proxy.Dialer,
// so code already written against that ecosystem interface (as
// tun2socks-adjacent SOCKS stacks are) can dial through the same
// unauthenticated-CONNECT tunnel this package implements.
func AsProxyDialer(proxyAddr string, forward *net.Dialer) proxy.Dialer {
	if forward == nil {
		forward = &net.Dialer{}
	}
	return &proxyDialerAdapter{proxyAddr: proxyAddr, forward: forward}
}

type proxyDialerAdapter struct {
	proxyAddr string
	forward   *net.Dialer
}

func (a *proxyDialerAdapter) Dial(network, addr string) (net.Conn, error) {
	return Dial(context.Background(), a.forward, a.proxyAddr, addr)
}

var _ proxy.Dialer = (*proxyDialerAdapter)(nil)
