package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/corvidrecon/corvid/internal/asset"
	"github.com/corvidrecon/corvid/internal/isolation"
	"github.com/corvidrecon/corvid/internal/registry"
	"github.com/corvidrecon/corvid/internal/store"
)

// stubStore is a minimal store.Store for exercising the orchestrator's
// event handling without a real database.
type stubStore struct {
	store.Store
	insertErr error
	nextID    int64
	gotObject asset.Object
}

func (s *stubStore) InsertObject(ctx context.Context, obj asset.Object) (bool, int64, error) {
	s.gotObject = obj
	if s.insertErr != nil {
		return false, 0, s.insertErr
	}
	return true, s.nextID, nil
}

type recordingUI struct {
	infos []string
	logs  []string
}

func (u *recordingUI) Info(msg string) { u.infos = append(u.infos, msg) }
func (u *recordingUI) Log(msg string)  { u.logs = append(u.logs, msg) }

func TestHandleObjectEventInsertsAndRepliesOk(t *testing.T) {
	s := &stubStore{nextID: 9}
	o := New(s, nil)
	mod := &registry.Module{Name: "test", Author: "corvid"}

	ev := isolation.ObjectEvent(asset.Object{
		Kind:   asset.KindIpAddr,
		IpAddr: &asset.IpAddrObject{Family: asset.Family4, Value: "1.2.3.4"},
	})

	reply, err := o.handle(context.Background(), mod, nil)(ev)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !reply.OK || reply.ID != 9 {
		t.Fatalf("want Ok(9), got %+v", reply)
	}
	if s.gotObject.IpAddr.Value != "1.2.3.4" {
		t.Fatalf("store did not receive expected object: %+v", s.gotObject)
	}
}

func TestHandleObjectEventRejectionRepliesErr(t *testing.T) {
	s := &stubStore{insertErr: errors.New("domain does not exist")}
	o := New(s, nil)
	mod := &registry.Module{Name: "test", Author: "corvid"}

	ev := isolation.ObjectEvent(asset.Object{
		Kind:      asset.KindSubdomain,
		Subdomain: &asset.SubdomainObject{DomainID: 99, Value: "x.example.com"},
	})

	reply, err := o.handle(context.Background(), mod, nil)(ev)
	if err != nil {
		t.Fatalf("handle returned an error instead of an Err reply: %v", err)
	}
	if reply.OK {
		t.Fatal("expected an Err reply for a rejected insert")
	}
	if reply.Message != "domain does not exist" {
		t.Fatalf("unexpected reply message: %q", reply.Message)
	}
}

func TestHandleForwardsInfoAndLogToUI(t *testing.T) {
	s := &stubStore{}
	o := New(s, nil)
	mod := &registry.Module{Name: "test", Author: "corvid"}
	ui := &recordingUI{}

	h := o.handle(context.Background(), mod, ui)
	if _, err := h(isolation.InfoEvent("hello")); err != nil {
		t.Fatalf("handle(Info): %v", err)
	}
	if _, err := h(isolation.LogEvent("debug line")); err != nil {
		t.Fatalf("handle(Log): %v", err)
	}

	if len(ui.infos) != 1 || ui.infos[0] != "hello" {
		t.Fatalf("unexpected infos: %v", ui.infos)
	}
	if len(ui.logs) != 1 || ui.logs[0] != "debug line" {
		t.Fatalf("unexpected logs: %v", ui.logs)
	}
}
