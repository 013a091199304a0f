// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

type sampleEvent struct {
	URL        string `cbor:"url"`
	StatusCode int    `cbor:"status_code,omitempty"`
	MainFrame  bool   `cbor:"main_frame"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleEvent{URL: "https://example.org/", StatusCode: 200, MainFrame: true}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleEvent
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	first := MustMarshal(map[string]any{"b": 1, "a": "x", "c": true})
	second := MustMarshal(map[string]any{"c": true, "a": "x", "b": 1})
	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestUnmarshalIntoAnyUsesStringKeys(t *testing.T) {
	data := MustMarshal(sampleEvent{URL: "about:blank"})

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	fields, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type = %T, want map[string]any", decoded)
	}
	if fields["url"] != "about:blank" {
		t.Errorf("url = %v, want about:blank", fields["url"])
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	data := MustMarshal(map[string]any{"url": "a", "future_field": 9})

	var decoded sampleEvent
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.URL != "a" {
		t.Errorf("URL = %q, want a", decoded.URL)
	}
}

func TestDiagnose(t *testing.T) {
	diagnostic, err := Diagnose(MustMarshal(sampleEvent{URL: "x", MainFrame: true}))
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(diagnostic, `"url": "x"`) {
		t.Errorf("Diagnose = %s, want it to contain the url field", diagnostic)
	}
}
