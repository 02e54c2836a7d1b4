// Package discovery advertises the editor server on the local network over
// mDNS and finds other instances.
package discovery

import (
	"fmt"
	"net"
	"time"

	"github.com/hashicorp/mdns"
)

const ServiceType = "_spline._tcp"

// Peer is an editor server found on the network.
type Peer struct {
	Instance string
	Addr     string // host:port
	Info     []string
}

// NewService describes this server. An empty hostName or nil ips are filled
// in from the OS.
func NewService(instance string, port int, hostName string, ips []net.IP, info ...string) (*mdns.MDNSService, error) {
	if len(info) == 0 {
		info = []string{"spline curve editor"}
	}
	service, err := mdns.NewMDNSService(instance, ServiceType, "", hostName, port, ips, info)
	if err != nil {
		return nil, fmt.Errorf("create mdns service: %w", err)
	}
	return service, nil
}

// Advertise starts answering mDNS queries for the server on port. Close the
// returned server to stop.
func Advertise(instance string, port int, info ...string) (*mdns.Server, error) {
	service, err := NewService(instance, port, "", nil, info...)
	if err != nil {
		return nil, err
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("start mdns server: %w", err)
	}
	return server, nil
}

// Browse queries the network for timeout and calls found for every server
// that answers with an IPv4 address.
func Browse(timeout time.Duration, found func(Peer)) error {
	entries := make(chan *mdns.ServiceEntry, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			if p, ok := peer(e); ok {
				found(p)
			}
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	<-done
	if err != nil {
		return fmt.Errorf("mdns query: %w", err)
	}
	return nil
}

func peer(e *mdns.ServiceEntry) (Peer, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return Peer{}, false
	}
	return Peer{
		Instance: e.Name,
		Addr:     net.JoinHostPort(e.AddrV4.String(), fmt.Sprint(e.Port)),
		Info:     e.InfoFields,
	}, true
}
