package isolation

import (
	"encoding/json"
	"testing"

	"github.com/corvidrecon/corvid/internal/asset"
)

func TestEventRoundTripDone(t *testing.T) {
	data, err := json.Marshal(DoneEvent())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `"Done"` {
		t.Fatalf(`want "Done", got %s`, data)
	}

	var got Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Kind != EventDone {
		t.Fatalf("want EventDone, got %v", got.Kind)
	}
}

func TestEventRoundTripObject(t *testing.T) {
	want := ObjectEvent(asset.Object{
		Kind:      asset.KindSubdomain,
		Subdomain: &asset.SubdomainObject{DomainID: 1, Value: "www.example.com"},
	})

	data, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Kind != EventObject || got.Object.Subdomain == nil {
		t.Fatalf("unexpected round trip: %+v", got)
	}
	if got.Object.Subdomain.Value != "www.example.com" {
		t.Fatalf("unexpected value: %q", got.Object.Subdomain.Value)
	}
}

func TestEventRoundTripStdinRequest(t *testing.T) {
	data, err := json.Marshal(StdinRequestEvent())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `"StdinRequest"` {
		t.Fatalf(`want "StdinRequest", got %s`, data)
	}

	var got Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Kind != EventStdinRequest {
		t.Fatalf("want EventStdinRequest, got %v", got.Kind)
	}
}

func TestEventUnknownTagErrors(t *testing.T) {
	var got Event
	if err := json.Unmarshal([]byte(`{"Bogus":1}`), &got); err == nil {
		t.Fatal("expected error for unknown event tag")
	}
}

func TestReplyRoundTrip(t *testing.T) {
	data, err := json.Marshal(OkReply(42))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"Ok":42}` {
		t.Fatalf(`want {"Ok":42}, got %s`, data)
	}

	var got Reply
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !got.OK || got.ID != 42 {
		t.Fatalf("unexpected reply: %+v", got)
	}

	errData, _ := json.Marshal(ErrReply("boom"))
	if string(errData) != `{"Err":"boom"}` {
		t.Fatalf(`want {"Err":"boom"}, got %s`, errData)
	}
}

func TestLineRoundTrip(t *testing.T) {
	data, err := json.Marshal(LineValue("example.com"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `"example.com"` {
		t.Fatalf(`want "example.com", got %s`, data)
	}

	var got Line
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !got.Present || got.Value != "example.com" {
		t.Fatalf("unexpected line: %+v", got)
	}
}

func TestLineRoundTripNone(t *testing.T) {
	data, err := json.Marshal(NoLine())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != "null" {
		t.Fatalf(`want null, got %s`, data)
	}

	var got Line
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Present {
		t.Fatalf("expected an absent line, got %+v", got)
	}
}
