// Package sched is the lifecycle controller: the single-threaded event
// loop that owns the datagram endpoint and drives every registered
// runtime through its state machine. It is the only component that
// calls transport.Receive/Send; everything else it delegates to the
// registry, the partitioner, and the arbiter.
package sched

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/edge-infer/scheduler/arbiter"
	"github.com/edge-infer/scheduler/partition"
	"github.com/edge-infer/scheduler/registry"
	"github.com/edge-infer/scheduler/schederr"
	"github.com/edge-infer/scheduler/transport"
	"github.com/edge-infer/scheduler/wire"
)

// Controller runs the scheduler's event loop: block in Receive, process one
// packet to completion, reply, repeat. It never processes two packets
// concurrently, matching the reference scheduler's single-threaded design;
// the System Monitor is the only other goroutine touching shared state, and
// it only ever writes its own utilization cells.
type Controller struct {
	ep   *transport.Endpoint
	reg  *registry.Registry
	part *partition.Partitioner
	arb  *arbiter.Arbiter
}

// New wires a Controller around an already-bound endpoint. reg, part, and
// arb are constructed by the caller so tests can inspect them directly.
func New(ep *transport.Endpoint, reg *registry.Registry, part *partition.Partitioner, arb *arbiter.Arbiter) *Controller {
	return &Controller{ep: ep, reg: reg, part: part, arb: arb}
}

// Run blocks processing datagrams until ctx is canceled, at which point it
// closes the endpoint to unblock the pending Receive and returns nil. Any
// other failure to Receive is a transport error and stops the loop.
func (c *Controller) Run(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			c.ep.Close()
		case <-stop:
		}
	}()

	for {
		pkt, addr, err := c.ep.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, transport.ErrShortRead) {
				slog.Warn("dropping malformed datagram", "error", err)
				continue
			}
			return schederr.Wrap(schederr.KindTransport, "receive failed", err)
		}

		reply, err := c.handle(pkt, addr)
		if err != nil {
			if schederr.Is(err, schederr.KindUnknownRuntime) {
				slog.Warn("dropping packet from unknown runtime", "error", err)
				continue
			}
			slog.Error("failed to process packet", "error", err)
			continue
		}

		if _, err := c.ep.Send(reply, addr); err != nil {
			slog.Error("failed to send reply", "error", schederr.Wrap(schederr.KindSend, "send failed", err))
		}
	}
}

// handle advances one runtime's state machine by exactly one step and
// builds the reply packet to send back. pkt.CurrentState is where the
// sender was when it sent this datagram; that is the only state field an
// inbound packet is trusted for — a sender's NextState has no documented
// meaning on the way in, so handle never reads it. The reply overwrites
// CurrentState with what the controller is granting and NextState with the
// state the sender should now consider itself in; on this wire the two
// fields always carry the same value in a reply, since the controller
// never second-guesses its own grant before the sender acts on it.
func (c *Controller) handle(pkt wire.Packet, addr *net.UnixAddr) (*wire.Packet, error) {
	switch {
	case pkt.CurrentState == wire.StateInitialize:
		// A runtime that already carries an id and sends another
		// Initialize is logged and registered again unconditionally,
		// matching the reference's walk-then-register-anyway behavior.
		if c.reg.KnownID(pkt.RuntimeID) {
			registry.LogWarnDuplicate(pkt.RuntimeID)
		}
		rt := c.reg.Register(addr)
		pkt.RuntimeID = rt.ID

	case !c.reg.KnownID(pkt.RuntimeID):
		return nil, schederr.New(schederr.KindUnknownRuntime, "packet references unregistered runtime")
	}

	if err := c.reg.UpdateState(pkt.RuntimeID, pkt.CurrentState); err != nil {
		return nil, schederr.Wrap(schederr.KindUnknownRuntime, "update state failed", err)
	}

	reply := pkt
	reply.Plan = wire.Packet{}.Plan

	switch pkt.CurrentState {
	case wire.StateInitialize:
		reply.CurrentState = wire.StateNeedProfile
		reply.NextState = wire.StateNeedProfile

	case wire.StateNeedProfile:
		layers := pkt.LayerCount()
		if layers >= 0 {
			if err := c.reg.SetLatencies(pkt.RuntimeID, pkt.Latency[:layers]); err != nil {
				slog.Warn("failed to record latency profile", "runtime_id", pkt.RuntimeID, "error", err)
			}
		}
		plan := c.part.Plan(pkt.RuntimeID, layers)
		if err := reply.SetPlan(plan); err != nil {
			return nil, schederr.Wrap(schederr.KindProtocol, "plan does not fit on wire", err)
		}
		reply.CurrentState = wire.StateSubgraphCreate
		reply.NextState = wire.StateSubgraphCreate

	case wire.StateSubgraphCreate:
		reply.CurrentState = wire.StateInvoke
		reply.NextState = wire.StateInvoke

	case wire.StateInvoke:
		if c.arb.Acquire(pkt.CurGraphResource, pkt.RuntimeID) {
			reply.CurrentState = wire.StateInvoke
			reply.NextState = wire.StateInvoke
		} else {
			reply.CurrentState = wire.StateBlocked
			reply.NextState = wire.StateBlocked
		}

	case wire.StateBlocked:
		// A Blocked runtime has already reached Invoke. Record it as Invoke
		// so its own state does not hold the bootstrap barrier shut against
		// this retry.
		if err := c.reg.UpdateState(pkt.RuntimeID, wire.StateInvoke); err != nil {
			return nil, schederr.Wrap(schederr.KindUnknownRuntime, "update state failed", err)
		}
		if c.arb.Acquire(pkt.CurGraphResource, pkt.RuntimeID) {
			reply.CurrentState = wire.StateInvoke
			reply.NextState = wire.StateInvoke
		} else {
			reply.CurrentState = wire.StateBlocked
			reply.NextState = wire.StateBlocked
		}

	case wire.StateTerminate:
		c.arb.ReleaseHeld(pkt.RuntimeID)
		c.reg.Remove(pkt.RuntimeID)
		c.reg.LogStates()
		reply.CurrentState = wire.StateTerminate
		reply.NextState = wire.StateTerminate

	default:
		return nil, schederr.New(schederr.KindProtocol, "unrecognized current state")
	}

	return &reply, nil
}
