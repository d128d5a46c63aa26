package full_node

import (
	"errors"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var ErrMalformedAddress = errors.New("malformed peer address")

// PeerStore persists the peer book. store.BoltPeerStore implements it.
type PeerStore interface {
	SavePeer(peer string) error
	LoadPeers() ([]string, error)
}

// PeerSet is the set of known peers, each one in host:port form.
type PeerSet struct {
	// Create a mutex protect peers addition.
	pm    sync.RWMutex
	peers map[string]struct{}
	// Optional, nil keeps peers in memory only.
	store  PeerStore
	logger *zap.Logger
}

// NewPeerSet creates a peer set, preloaded from store when there is one.
func NewPeerSet(store PeerStore, logger *zap.Logger) (*PeerSet, error) {
	ps := &PeerSet{
		peers:  make(map[string]struct{}),
		store:  store,
		logger: logger,
	}
	if store == nil {
		return ps, nil
	}
	saved, err := store.LoadPeers()
	if err != nil {
		return nil, err
	}
	for _, p := range saved {
		ps.peers[p] = struct{}{}
	}
	if len(saved) > 0 {
		logger.Info("loaded peers from store", zap.Strings("peers", saved))
	}
	return ps, nil
}

// ParsePeerAddress extracts host:port out of an address such as
// "http://192.168.0.5:5000" or "192.168.0.5:5000". Paths are ignored. A
// missing port defaults to the scheme's, 80 for http and 443 for https.
func ParsePeerAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", ErrMalformedAddress
	}

	var host, port string
	u, err := url.Parse(address)
	if err == nil && u.Scheme != "" && u.Host != "" {
		host = u.Hostname()
		port = u.Port()
		if port == "" {
			switch u.Scheme {
			case "http":
				port = "80"
			case "https":
				port = "443"
			}
		}
	} else {
		// Bare host:port, nothing else allowed around it.
		if strings.ContainsAny(address, "/?#@") {
			return "", ErrMalformedAddress
		}
		host, port, err = net.SplitHostPort(address)
		if err != nil {
			return "", ErrMalformedAddress
		}
	}

	if host == "" || port == "" {
		return "", ErrMalformedAddress
	}
	if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
		return "", ErrMalformedAddress
	}
	return net.JoinHostPort(host, port), nil
}

// Register adds the peer behind address. It returns the normalized peer and
// whether it was new. A malformed address leaves the set untouched.
func (ps *PeerSet) Register(address string) (string, bool, error) {
	peer, err := ParsePeerAddress(address)
	if err != nil {
		ps.logger.Warn("ignoring malformed peer address", zap.String("address", address))
		return "", false, err
	}

	ps.pm.Lock()
	defer ps.pm.Unlock()
	if _, exist := ps.peers[peer]; exist {
		ps.logger.Debug("peer already registered", zap.String("peer", peer))
		return peer, false, nil
	}
	ps.peers[peer] = struct{}{}
	if ps.store != nil {
		if err := ps.store.SavePeer(peer); err != nil {
			// The peer is still usable for this run.
			ps.logger.Warn("failed to persist peer", zap.String("peer", peer), zap.Error(err))
		}
	}
	ps.logger.Info("peer registered", zap.String("peer", peer))
	return peer, true, nil
}

// Return all current peers, sorted.
func (ps *PeerSet) List() []string {
	ps.pm.RLock()
	defer ps.pm.RUnlock()
	peers := make([]string, 0, len(ps.peers))
	for p := range ps.peers {
		peers = append(peers, p)
	}
	sort.Strings(peers)
	return peers
}

func (ps *PeerSet) Len() int {
	ps.pm.RLock()
	defer ps.pm.RUnlock()
	return len(ps.peers)
}
