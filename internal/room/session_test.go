package room_test

import (
	"strings"
	"testing"

	"github.com/roomkit/roomd/internal/room"
	"github.com/roomkit/roomd/internal/state"
)

func newTestCore(t *testing.T) (*room.Server, *room.Registry, *state.Store) {
	t.Helper()
	reg := room.NewRegistry()
	store := state.New(t.TempDir(), true)
	core := room.NewServer(reg, room.NewBroadcaster(reg), store, func() string { return "default" })
	return core, reg, store
}

func TestConnectSendsWelcome(t *testing.T) {
	core, _, _ := newTestCore(t)
	c := newFakeConn("1.2.3.4:5")

	sess := core.OnConnect(c)

	envs := c.envelopes(t)
	if len(envs) != 1 || envs[0].Type != room.TypeWelcome {
		t.Fatalf("want welcome, got %v", envs)
	}
	if envs[0].Time == "" {
		t.Fatalf("welcome should carry a timestamp")
	}
	if !strings.HasPrefix(sess.ID(), "1.2.3.4:5-") {
		t.Fatalf("session id should derive from the remote address: %q", sess.ID())
	}
}

func TestJoinAcksAndNotifiesOthers(t *testing.T) {
	core, reg, _ := newTestCore(t)
	a, b := newFakeConn("a"), newFakeConn("b")
	sa := core.OnConnect(a)
	sb := core.OnConnect(b)

	core.OnMessage(sa, []byte(`{"type":"join","room":"lobby"}`))
	core.OnMessage(sb, []byte(`{"type":"join","room":"lobby"}`))

	aEnvs := a.envelopes(t)
	// welcome, joined, then the notice about b.
	if len(aEnvs) != 3 {
		t.Fatalf("a: %v", aEnvs)
	}
	if aEnvs[1].Type != room.TypeJoined || aEnvs[1].Room != "lobby" {
		t.Fatalf("join ack: %v", aEnvs[1])
	}
	if aEnvs[2].Type != room.TypeNotice || !strings.Contains(aEnvs[2].Msg, "joined") {
		t.Fatalf("join notice: %v", aEnvs[2])
	}

	// The joiner never sees its own notice.
	bEnvs := b.envelopes(t)
	if len(bEnvs) != 2 || bEnvs[1].Type != room.TypeJoined {
		t.Fatalf("b: %v", bEnvs)
	}

	if members := reg.MembersOf("lobby"); len(members) != 2 {
		t.Fatalf("membership: %v", members)
	}
}

func TestJoinSanitizesRoomName(t *testing.T) {
	core, reg, _ := newTestCore(t)
	c := newFakeConn("a")
	sess := core.OnConnect(c)

	core.OnMessage(sess, []byte(`{"type":"join","room":"lob by!"}`))

	if sess.Room() != "lobby" {
		t.Fatalf("room not sanitized: %q", sess.Room())
	}
	if len(reg.MembersOf("lobby")) != 1 {
		t.Fatalf("membership should use the sanitized name")
	}
}

func TestJoinEmptyRoomFallsBackToDefault(t *testing.T) {
	core, _, _ := newTestCore(t)
	c := newFakeConn("a")
	sess := core.OnConnect(c)

	core.OnMessage(sess, []byte(`{"type":"join","room":"!!!"}`))

	if sess.Room() != "default" {
		t.Fatalf("want default room, got %q", sess.Room())
	}
}

func TestMalformedPayloadGetsErrorAckOnly(t *testing.T) {
	core, reg, _ := newTestCore(t)
	a, b := newFakeConn("a"), newFakeConn("b")
	sa := core.OnConnect(a)
	sb := core.OnConnect(b)
	core.OnMessage(sa, []byte(`{"type":"join","room":"lobby"}`))
	core.OnMessage(sb, []byte(`{"type":"join","room":"lobby"}`))

	before := len(b.envelopes(t))
	core.OnMessage(sa, []byte(`{not json`))

	aEnvs := a.envelopes(t)
	last := aEnvs[len(aEnvs)-1]
	if last.Type != room.TypeError || last.Error != "invalid json" {
		t.Fatalf("want invalid json ack, got %v", last)
	}
	if len(b.envelopes(t)) != before {
		t.Fatalf("error must not reach other members")
	}
	// Still joined, still functional.
	if sa.Room() != "lobby" || len(reg.MembersOf("lobby")) != 2 {
		t.Fatalf("malformed payload must not change state")
	}
}

func TestMsgBeforeJoinIsRejected(t *testing.T) {
	core, _, _ := newTestCore(t)
	c := newFakeConn("a")
	sess := core.OnConnect(c)

	core.OnMessage(sess, []byte(`{"type":"msg","text":"hi"}`))

	envs := c.envelopes(t)
	last := envs[len(envs)-1]
	if last.Type != room.TypeError || last.Error != "not joined" {
		t.Fatalf("want not joined ack, got %v", last)
	}
}

func TestUnknownTypeIsRejected(t *testing.T) {
	core, _, _ := newTestCore(t)
	c := newFakeConn("a")
	sess := core.OnConnect(c)

	core.OnMessage(sess, []byte(`{"type":"dance"}`))

	envs := c.envelopes(t)
	if envs[len(envs)-1].Error != "unknown type" {
		t.Fatalf("want unknown type ack, got %v", envs)
	}
}

func TestMsgReachesWholeRoomIncludingSender(t *testing.T) {
	core, _, _ := newTestCore(t)
	a, b := newFakeConn("a"), newFakeConn("b")
	sa := core.OnConnect(a)
	sb := core.OnConnect(b)
	core.OnMessage(sa, []byte(`{"type":"join","room":"lobby"}`))
	core.OnMessage(sb, []byte(`{"type":"join","room":"lobby"}`))

	core.OnMessage(sa, []byte(`{"type":"msg","text":"hello"}`))

	for _, c := range []*fakeConn{a, b} {
		envs := c.envelopes(t)
		last := envs[len(envs)-1]
		if last.Type != room.TypeMsg || last.Text != "hello" || last.From != sa.ID() {
			t.Fatalf("%s: %v", c.addr, last)
		}
	}
}

func TestStateMergesAndBroadcasts(t *testing.T) {
	core, _, store := newTestCore(t)
	a, b := newFakeConn("a"), newFakeConn("b")
	sa := core.OnConnect(a)
	sb := core.OnConnect(b)
	core.OnMessage(sa, []byte(`{"type":"join","room":"lobby"}`))
	core.OnMessage(sb, []byte(`{"type":"join","room":"lobby"}`))

	core.OnMessage(sa, []byte(`{"type":"state","payload":{"score":10}}`))

	bEnvs := b.envelopes(t)
	last := bEnvs[len(bEnvs)-1]
	if last.Type != room.TypeState || last.From != sa.ID() {
		t.Fatalf("state broadcast: %v", last)
	}
	if last.Payload["score"] != float64(10) {
		t.Fatalf("state payload: %v", last.Payload)
	}

	doc, err := store.Load("lobby")
	if err != nil || doc["score"] != float64(10) {
		t.Fatalf("merge not applied: doc=%v err=%v", doc, err)
	}
}

func TestDisconnectLeavesRoom(t *testing.T) {
	core, reg, _ := newTestCore(t)
	c := newFakeConn("a")
	sess := core.OnConnect(c)
	core.OnMessage(sess, []byte(`{"type":"join","room":"lobby"}`))

	core.OnDisconnect(sess)

	if members := reg.MembersOf("lobby"); len(members) != 0 {
		t.Fatalf("still a member after disconnect: %v", members)
	}

	// Double disconnect is harmless.
	core.OnDisconnect(sess)
}

func TestRejoinSwitchesRooms(t *testing.T) {
	core, reg, _ := newTestCore(t)
	c := newFakeConn("a")
	sess := core.OnConnect(c)

	core.OnMessage(sess, []byte(`{"type":"join","room":"red"}`))
	core.OnMessage(sess, []byte(`{"type":"join","room":"blue"}`))

	if len(reg.MembersOf("red")) != 0 || len(reg.MembersOf("blue")) != 1 {
		t.Fatalf("rejoin did not move the handle")
	}
	if sess.Room() != "blue" {
		t.Fatalf("session room: %q", sess.Room())
	}
}
