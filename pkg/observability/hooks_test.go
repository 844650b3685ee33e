package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	d := NoopDiagramHooks{}
	d.OnInitialize(3, 2, time.Millisecond)
	d.OnSync(SyncEvent{Added: 1}, time.Millisecond)
	d.OnSanitize(4)

	s := NoopStoreHooks{}
	s.OnLoad(ctx, "memory", "main.flow.json", time.Millisecond, nil)
	s.OnSave(ctx, "memory", "main.flow.json", time.Millisecond, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "artifact")
	c.OnCacheMiss(ctx, "artifact")
	c.OnCacheSet(ctx, "artifact", 1024)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if _, ok := Diagram().(NoopDiagramHooks); !ok {
		t.Error("Diagram() should return NoopDiagramHooks by default")
	}
	if _, ok := Store().(NoopStoreHooks); !ok {
		t.Error("Store() should return NoopStoreHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}

	dh := &testDiagramHooks{}
	SetDiagramHooks(dh)
	if Diagram() != dh {
		t.Error("SetDiagramHooks should set custom hooks")
	}

	sh := &testStoreHooks{}
	SetStoreHooks(sh)
	if Store() != sh {
		t.Error("SetStoreHooks should set custom hooks")
	}

	ch := &testCacheHooks{}
	SetCacheHooks(ch)
	if Cache() != ch {
		t.Error("SetCacheHooks should set custom hooks")
	}

	Reset()
	if _, ok := Diagram().(NoopDiagramHooks); !ok {
		t.Error("Reset() should restore NoopDiagramHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &testDiagramHooks{}
	SetDiagramHooks(custom)
	SetDiagramHooks(nil)
	if Diagram() != custom {
		t.Error("SetDiagramHooks(nil) should keep the previous hooks")
	}
}

func TestCustomHooksReceiveEvents(t *testing.T) {
	Reset()
	defer Reset()

	h := &testDiagramHooks{}
	SetDiagramHooks(h)
	Diagram().OnSync(SyncEvent{Resynced: 2}, time.Millisecond)
	Diagram().OnSanitize(1)

	if h.syncs != 1 || h.last.Resynced != 2 {
		t.Errorf("syncs = %d, last = %+v", h.syncs, h.last)
	}
	if h.sanitized != 1 {
		t.Errorf("sanitized = %d, want 1", h.sanitized)
	}
}

type testDiagramHooks struct {
	syncs     int
	last      SyncEvent
	sanitized int
}

func (h *testDiagramHooks) OnInitialize(int, int, time.Duration) {}
func (h *testDiagramHooks) OnSync(ev SyncEvent, _ time.Duration) {
	h.syncs++
	h.last = ev
}
func (h *testDiagramHooks) OnSanitize(removed int) { h.sanitized += removed }

type testStoreHooks struct{}

func (*testStoreHooks) OnLoad(context.Context, string, string, time.Duration, error) {}
func (*testStoreHooks) OnSave(context.Context, string, string, time.Duration, error) {}

type testCacheHooks struct{}

func (*testCacheHooks) OnCacheHit(context.Context, string)      {}
func (*testCacheHooks) OnCacheMiss(context.Context, string)     {}
func (*testCacheHooks) OnCacheSet(context.Context, string, int) {}
