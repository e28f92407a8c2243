// Package transport adapts a libp2p host and gossipsub into the Announcer,
// Syncer, and gossip-fetch surfaces runtime.Runtime drives. Grounded on
// networking.Service/NewHost/NewGossipSub.
package transport

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/golang/snappy"
	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	corepeer "github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"

	pubsub "github.com/libp2p/go-libp2p-pubsub"

	"github.com/bzz/radicle-peer/identity"
	"github.com/bzz/radicle-peer/peer"
	"github.com/bzz/radicle-peer/runtime"
)

const (
	announceTopic = "/radicle/peer/announce/v1"
	gossipTopic   = "/radicle/peer/gossip/v1"
)

// HostConfig mirrors networking.HostConfig: an optional private key and
// listen addresses, defaulting to a fresh identity and QUIC on :9600.
type HostConfig struct {
	PrivateKey  crypto.PrivKey
	ListenAddrs []string
}

// NewHost creates a libp2p host with the given configuration.
func NewHost(cfg HostConfig) (host.Host, error) {
	privKey := cfg.PrivateKey
	var err error
	if privKey == nil {
		privKey, _, err = crypto.GenerateKeyPairWithReader(crypto.Ed25519, 256, rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("transport: generate key: %w", err)
		}
	}

	listenAddrs := cfg.ListenAddrs
	if len(listenAddrs) == 0 {
		listenAddrs = []string{"/ip4/0.0.0.0/udp/9600/quic-v1"}
	}

	h, err := libp2p.New(
		libp2p.Identity(privKey),
		libp2p.ListenAddrStrings(listenAddrs...),
	)
	if err != nil {
		return nil, fmt.Errorf("transport: create host: %w", err)
	}
	return h, nil
}

// ParseBootstrapPeers parses multiaddr strings into AddrInfo, silently
// skipping any that don't parse (mirrors networking.ParseBootnodes).
func ParseBootstrapPeers(addrs []string) []corepeer.AddrInfo {
	var out []corepeer.AddrInfo
	for _, addr := range addrs {
		ma, err := multiaddr.NewMultiaddr(addr)
		if err != nil {
			continue
		}
		pi, err := corepeer.AddrInfoFromP2pAddr(ma)
		if err != nil {
			continue
		}
		out = append(out, *pi)
	}
	return out
}

// Node wraps a libp2p host and a gossipsub pair of topics, implementing
// runtime.Announcer, runtime.Syncer and runtime.RequestRunner, and feeding
// incoming protocol activity into a runtime.Runtime as peer.Input.
type Node struct {
	host   host.Host
	ps     *pubsub.PubSub
	logger *slog.Logger

	announceTopic *pubsub.Topic
	announceSub   *pubsub.Subscription
	gossipTopic   *pubsub.Topic
	gossipSub     *pubsub.Subscription

	rt *runtime.Runtime

	mu               sync.Mutex
	started          bool
	done             chan struct{}
	knownAddr        map[identity.PeerID]corepeer.AddrInfo
	announcedUpdates peer.AnnouncementUpdates
}

// NewNode joins both topics on h and wires rt as the sink for incoming
// protocol activity.
func NewNode(ctx context.Context, h host.Host, rt *runtime.Runtime, logger *slog.Logger) (*Node, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("transport: create gossipsub: %w", err)
	}

	at, err := ps.Join(announceTopic)
	if err != nil {
		return nil, fmt.Errorf("transport: join announce topic: %w", err)
	}
	as, err := at.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("transport: subscribe announce topic: %w", err)
	}

	gt, err := ps.Join(gossipTopic)
	if err != nil {
		return nil, fmt.Errorf("transport: join gossip topic: %w", err)
	}
	gs, err := gt.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("transport: subscribe gossip topic: %w", err)
	}

	return &Node{
		host:          h,
		ps:            ps,
		logger:        logger,
		announceTopic: at,
		announceSub:   as,
		gossipTopic:   gt,
		gossipSub:     gs,
		rt:            rt,
		done:          make(chan struct{}),
		knownAddr:     make(map[identity.PeerID]corepeer.AddrInfo),
	}, nil
}

// RegisterPeerAddr records the libp2p address a radicle PeerID can be
// reached at, learned by whatever peer-discovery mechanism feeds this
// node (out of scope per spec.md §1). SyncPeer looks up this table.
func (n *Node) RegisterPeerAddr(id identity.PeerID, addr corepeer.AddrInfo) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.knownAddr[id] = addr
}

// Start launches the background readers that translate incoming gossipsub
// messages into protocol inputs for the runtime.
func (n *Node) Start(ctx context.Context) {
	n.mu.Lock()
	if n.started {
		n.mu.Unlock()
		return
	}
	n.started = true
	n.mu.Unlock()

	go n.readAnnounceLoop(ctx)
	go n.readGossipLoop(ctx)
}

// Stop cancels subscriptions and closes the host.
func (n *Node) Stop() {
	close(n.done)
	n.announceSub.Cancel()
	n.gossipSub.Cancel()
	n.host.Close()
}

func (n *Node) readAnnounceLoop(ctx context.Context) {
	for {
		msg, err := n.announceSub.Next(ctx)
		if err != nil {
			select {
			case <-n.done:
				return
			default:
			}
			n.logger.Error("announce subscription error", "error", err)
			return
		}
		if msg.ReceivedFrom == n.host.ID() {
			continue
		}
		n.logger.Debug("announce received", "from", msg.ReceivedFrom, "bytes", len(msg.Data))
	}
}

func (n *Node) readGossipLoop(ctx context.Context) {
	for {
		msg, err := n.gossipSub.Next(ctx)
		if err != nil {
			select {
			case <-n.done:
				return
			default:
			}
			n.logger.Error("gossip subscription error", "error", err)
			return
		}
		if msg.ReceivedFrom == n.host.ID() {
			continue
		}

		raw, err := snappy.Decode(nil, msg.Data)
		if err != nil {
			n.logger.Warn("gossip decompress failed", "error", err)
			continue
		}
		var payload peer.GossipPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			n.logger.Warn("gossip unmarshal failed", "error", err)
			continue
		}

		providerID := identity.NewPeerID([]byte(msg.ReceivedFrom))
		n.rt.Submit(peer.ProtocolInput{Event: peer.ProtocolEvent{
			Kind:     peer.ProtocolGossipPut,
			Gossip:   payload,
			Provider: peer.PeerInfo{PeerID: providerID},
		}})
	}
}

// Announce publishes a presence beacon on the announce topic and reports
// the updates it broadcast. Sourcing real project/revision pairs to
// announce is out of scope (spec.md §1); AnnouncedUpdates supplies
// whatever the caller has queued via SetAnnouncedUpdates, defaulting to
// none, so the publish always succeeds even with nothing to report.
func (n *Node) Announce(ctx context.Context) (peer.AnnouncementUpdates, error) {
	n.mu.Lock()
	updates := n.announcedUpdates
	n.mu.Unlock()

	raw, err := json.Marshal(updates)
	if err != nil {
		return peer.AnnouncementUpdates{}, fmt.Errorf("transport: marshal announcement: %w", err)
	}
	if err := n.announceTopic.Publish(ctx, snappy.Encode(nil, raw)); err != nil {
		return peer.AnnouncementUpdates{}, err
	}
	return updates, nil
}

// SetAnnouncedUpdates records the project/revision pairs the next Announce
// call should broadcast and report back, fed by whatever mechanism tracks
// local project state (out of scope per spec.md §1).
func (n *Node) SetAnnouncedUpdates(updates peer.AnnouncementUpdates) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.announcedUpdates = updates
}

// PublishGossip broadcasts a GossipPayload, compressed with snappy like the
// teacher's block/attestation topics.
func (n *Node) PublishGossip(ctx context.Context, payload peer.GossipPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("transport: marshal gossip: %w", err)
	}
	return n.gossipTopic.Publish(ctx, snappy.Encode(nil, raw))
}

// SyncPeer performs the bootstrap sync exchange for a peer the reducer has
// asked us to sync with. The wire protocol for the exchange itself is out
// of scope per spec.md §1: this resolves the identity-level PeerID to a
// libp2p connection, using whatever address RegisterPeerAddr last recorded
// for it, and reports success once a transport-level connection exists,
// standing in for the handshake a full implementation would run.
func (n *Node) SyncPeer(ctx context.Context, id identity.PeerID) error {
	n.mu.Lock()
	addr, ok := n.knownAddr[id]
	n.mu.Unlock()
	if !ok {
		return fmt.Errorf("transport: no known address for peer %s", id)
	}
	return n.host.Connect(ctx, addr)
}

// Query broadcasts a gossip query for urn so providers can respond with a
// GossipPut. It publishes the request payload only and does not wait for
// any response.
func (n *Node) Query(ctx context.Context, urn identity.URN) error {
	return n.PublishGossip(ctx, peer.GossipPayload{URN: urn})
}

// Clone is a placeholder for the real clone protocol (out of scope per
// spec.md §1): success is reported immediately so the waiting-room
// transitions exercise end to end.
func (n *Node) Clone(ctx context.Context, urn identity.URN, from identity.PeerID) error {
	return nil
}

// Host exposes the underlying libp2p host, e.g. for PeerCount/Addrs in cmd.
func (n *Node) Host() host.Host { return n.host }

// Stats implements runtime.StatsSource by reporting the libp2p network's
// currently-connected peer set, translating host.ID()s to identity.PeerIDs.
func (n *Node) Stats(ctx context.Context) (peer.Stats, []identity.PeerID, error) {
	conns := n.host.Network().Peers()
	ids := make([]identity.PeerID, 0, len(conns))
	for _, c := range conns {
		ids = append(ids, identity.NewPeerID([]byte(c)))
	}
	return peer.Stats{ConnectedPeers: len(ids)}, ids, nil
}
