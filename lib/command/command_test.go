// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/bureau-foundation/webhost/lib/layout"
	"github.com/bureau-foundation/webhost/lib/strview"
	"github.com/bureau-foundation/webhost/lib/testutil"
)

type decoded struct {
	code    Code
	payload string
}

func decodeAll(t *testing.T, reader *Reader, buffer []byte, count uint32) []decoded {
	t.Helper()
	var records []decoded
	if err := reader.Decode(buffer, count, func(record Record) {
		records = append(records, decoded{code: record.Code, payload: record.Payload.String()})
	}); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return records
}

func sequentialKeys(start int32) func() int32 {
	next := start
	return func() int32 {
		next++
		return next
	}
}

func TestPutRecordFormat(t *testing.T) {
	buffer := make([]byte, 16)
	next, ok := PutRecord(buffer, 0, EventTitle, []byte("abc"))
	if !ok {
		t.Fatal("PutRecord did not fit")
	}
	if next != 6 {
		t.Errorf("next = %d, want 6", next)
	}
	want := []byte{'T', 3, 0, 'a', 'b', 'c', 0}
	if !bytes.Equal(buffer[:7], want) {
		t.Errorf("record bytes = %v, want %v", buffer[:7], want)
	}
}

func TestPutRecordReservesTerminator(t *testing.T) {
	// 3 header + 4 payload + NUL = 8 bytes.
	if _, ok := PutRecord(make([]byte, 8), 0, EventURL, []byte("abcd")); !ok {
		t.Error("record of exactly the buffer size did not fit")
	}
	if _, ok := PutRecord(make([]byte, 7), 0, EventURL, []byte("abcd")); ok {
		t.Error("record without room for its terminator fit")
	}
}

func TestDecodeTruncated(t *testing.T) {
	buffer := make([]byte, 32)
	next, _ := PutRecord(buffer, 0, EventURL, []byte("one"))
	PutRecord(buffer, next, EventTitle, []byte("two"))

	err := Decode(buffer[:10], 2, func(Record) {})
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("Decode short buffer: err = %v, want ErrTruncated", err)
	}
}

func TestOverridingCodesCoalesce(t *testing.T) {
	outbox := NewOutbox(OutboxConfig{Table: Events})
	outbox.SetString(EventTitle, "first")
	outbox.SetString(EventLoadStart, "x")
	outbox.SetString(EventTitle, "second")
	outbox.SetString(EventLoadStart, "y")

	pending := outbox.Pending()
	if len(pending) != 3 {
		t.Fatalf("pending = %d records, want 3", len(pending))
	}
	if pending[0].Code != EventTitle || !pending[0].Payload.Equal("second") {
		t.Errorf("pending[0] = %c %q, want T second", pending[0].Code, pending[0].Payload)
	}
	if pending[1].Code != EventLoadStart || pending[2].Code != EventLoadStart {
		t.Errorf("load_start records were coalesced")
	}

	buffer := make([]byte, layout.FrameSize)
	count, err := outbox.Flush(buffer)
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	records := decodeAll(t, &Reader{}, buffer, count)
	want := []decoded{{EventTitle, "second"}, {EventLoadStart, "x"}, {EventLoadStart, "y"}}
	if len(records) != len(want) {
		t.Fatalf("records = %v, want %v", records, want)
	}
	for index := range want {
		if records[index] != want[index] {
			t.Errorf("record %d = %v, want %v", index, records[index], want[index])
		}
	}
}

func TestSetPartsJoins(t *testing.T) {
	outbox := NewOutbox(OutboxConfig{Table: Events})
	outbox.SetParts(EventURLMonitor, "https://a/", "1")
	pending := outbox.Pending()
	if !pending[0].Payload.Equal("https://a/\x011") {
		t.Errorf("payload = %q", pending[0].Payload)
	}
}

func TestOverflowRoundTrip(t *testing.T) {
	namespace := testutil.Namespace(t)
	instance := "AcTools.CSP.CEF.v0.4"
	outbox := NewOutbox(OutboxConfig{
		Table:     Events,
		Namespace: namespace,
		Instance:  instance,
		Keys:      sequentialKeys(100),
	})

	large := strings.Repeat("0123456789abcdef", 2048) // 32 KiB
	outbox.SetString(EventDataFromScript, large)
	outbox.SetString(EventTitle, "after")

	buffer := make([]byte, layout.FrameSize)
	count, err := outbox.Flush(buffer)
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	if buffer[0] != byte(CodeLarge) {
		t.Fatalf("first record code = %#x, want large", buffer[0])
	}
	descriptorLength := int(buffer[1]) | int(buffer[2])<<8
	if descriptorLength != DescriptorSize {
		t.Errorf("descriptor length = %d, want %d", descriptorLength, DescriptorSize)
	}
	if names := testutil.SegmentNames(t, namespace); len(names) != 1 || names[0] != instance+"_101" {
		t.Errorf("segments = %v, want [%s_101]", names, instance)
	}

	reader := &Reader{Namespace: namespace, Instance: instance}
	records := decodeAll(t, reader, buffer, count)
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].code != EventDataFromScript || records[0].payload != large {
		t.Errorf("overflow record = %c (%d bytes), want R (%d bytes)", records[0].code, len(records[0].payload), len(large))
	}
	if records[1] != (decoded{EventTitle, "after"}) {
		t.Errorf("second record = %v", records[1])
	}

	// The next flush releases the segment created by this one.
	if _, err := outbox.Flush(buffer); err != nil {
		t.Fatalf("second Flush: %v", err)
	}
	if names := testutil.SegmentNames(t, namespace); len(names) != 0 {
		t.Errorf("segments after next flush = %v, want none", names)
	}
}

func TestOverflowCompressed(t *testing.T) {
	for _, compression := range []Compression{CompressionLZ4, CompressionZstd} {
		t.Run(compression.String(), func(t *testing.T) {
			namespace := testutil.Namespace(t)
			outbox := NewOutbox(OutboxConfig{
				Table:       Requests,
				Namespace:   namespace,
				Instance:    "client",
				Compression: compression,
				Keys:        sequentialKeys(0),
			})
			defer outbox.Close()

			script := strings.Repeat("document.body.appendChild(document.createElement('div'));\n", 600)
			outbox.SetString(RequestExecute, script)

			buffer := make([]byte, layout.FrameSize)
			count, err := outbox.Flush(buffer)
			if err != nil {
				t.Fatalf("Flush: %v", err)
			}
			if int(buffer[1]) != CompressedDescriptorSize {
				t.Errorf("descriptor length = %d, want %d", buffer[1], CompressedDescriptorSize)
			}
			descriptor, err := ParseDescriptor(buffer[3 : 3+CompressedDescriptorSize])
			if err != nil {
				t.Fatalf("ParseDescriptor: %v", err)
			}
			if descriptor.Compression != compression || int(descriptor.RawSize) != len(script) {
				t.Errorf("descriptor = %+v, want %v raw %d", descriptor, compression, len(script))
			}
			if descriptor.StoredSize() >= len(script) {
				t.Errorf("stored %d bytes for a %d byte script", descriptor.StoredSize(), len(script))
			}

			records := decodeAll(t, &Reader{Namespace: namespace, Instance: "client"}, buffer, count)
			if len(records) != 1 || records[0].code != RequestExecute || records[0].payload != script {
				t.Errorf("decoded %d records, want the script back", len(records))
			}
		})
	}
}

func TestOverflowMissingSegmentIsSkipped(t *testing.T) {
	namespace := testutil.Namespace(t)
	buffer := make([]byte, 64)
	descriptor := Descriptor{Key: 42, Size: 20000}
	next, _ := PutRecord(buffer, 0, CodeLarge, descriptor.Encode())
	PutRecord(buffer, next, EventTitle, []byte("kept"))

	records := decodeAll(t, &Reader{Namespace: namespace, Instance: "gone"}, buffer, 2)
	if len(records) != 1 || records[0] != (decoded{EventTitle, "kept"}) {
		t.Errorf("records = %v, want only the title", records)
	}
}

func TestFullBufferDefersTail(t *testing.T) {
	outbox := NewOutbox(OutboxConfig{Table: Events})
	payload := strings.Repeat("x", 10000)
	for index := range 20 {
		outbox.SetString(EventDataFromScript, payload[:10000-index])
	}

	buffer := make([]byte, layout.FrameSize)
	count, err := outbox.Flush(buffer)
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	// Each record takes 3 + len bytes plus the reserved NUL.
	if count != 13 {
		t.Fatalf("first flush packed %d records, want 13", count)
	}
	if outbox.Len() != 7 {
		t.Fatalf("deferred = %d, want 7", outbox.Len())
	}

	count, err = outbox.Flush(buffer)
	if err != nil {
		t.Fatalf("second Flush: %v", err)
	}
	if count != 7 {
		t.Fatalf("second flush packed %d records, want 7", count)
	}
	records := decodeAll(t, &Reader{}, buffer, count)
	for index, record := range records {
		if want := 10000 - (13 + index); len(record.payload) != want {
			t.Errorf("deferred record %d is %d bytes, want %d", index, len(record.payload), want)
		}
	}
	if outbox.Len() != 0 {
		t.Errorf("outbox not empty after second flush: %d", outbox.Len())
	}
}

func TestOverflowNeedsDescriptorRoom(t *testing.T) {
	namespace := testutil.Namespace(t)
	outbox := NewOutbox(OutboxConfig{Table: Events, Namespace: namespace, Instance: "i", Keys: sequentialKeys(0)})
	defer outbox.Close()

	outbox.SetString(EventTitle, strings.Repeat("t", 40))
	outbox.SetString(EventDataFromScript, strings.Repeat("L", layout.MaxCommandSize+1))

	// The title takes 43 bytes plus its NUL; 60 bytes leave less than
	// the 20 an overflow descriptor needs.
	buffer := make([]byte, 60)
	count, err := outbox.Flush(buffer)
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if count != 1 || outbox.Len() != 1 {
		t.Errorf("count = %d, deferred = %d; want 1 and 1", count, outbox.Len())
	}
	if names := testutil.SegmentNames(t, namespace); len(names) != 0 {
		t.Errorf("overflow segment created without descriptor room: %v", names)
	}
}

func TestOverflowFailureKeepsOrder(t *testing.T) {
	namespace := testutil.Namespace(t)
	outbox := NewOutbox(OutboxConfig{
		Table:     Events,
		Namespace: namespace,
		Instance:  "i",
		Keys:      func() int32 { return 7 },
	})
	defer outbox.Close()

	// Every key attempt collides with this segment.
	blocker, err := namespace.Create(OverflowName("i", 7), 16)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	large := strings.Repeat("L", layout.MaxCommandSize+1)
	outbox.SetString(EventTitle, "before")
	outbox.SetString(EventDataFromScript, large)
	outbox.SetString(EventLoadStart, "after")

	buffer := make([]byte, layout.FrameSize)
	count, err := outbox.Flush(buffer)
	if err == nil {
		t.Fatal("Flush succeeded with no free overflow key")
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	if records := decodeAll(t, &Reader{}, buffer, count); records[0] != (decoded{EventTitle, "before"}) {
		t.Errorf("packed %v, want only the title", records)
	}
	pending := outbox.Pending()
	if len(pending) != 2 || pending[0].Code != EventDataFromScript || pending[1].Code != EventLoadStart {
		t.Fatalf("pending = %d records, want the large record then the load start", len(pending))
	}

	blocker.Unlink()
	count, err = outbox.Flush(buffer)
	if err != nil {
		t.Fatalf("second Flush: %v", err)
	}
	records := decodeAll(t, &Reader{Namespace: namespace, Instance: "i"}, buffer, count)
	if len(records) != 2 || records[0].payload != large || records[1] != (decoded{EventLoadStart, "after"}) {
		t.Errorf("second flush decoded %d records, want the large record then the load start", len(records))
	}
	if outbox.Len() != 0 {
		t.Errorf("outbox not empty after second flush: %d", outbox.Len())
	}
}

func TestParseDescriptorBounds(t *testing.T) {
	valid := Descriptor{Key: 3, Size: 100, Compression: CompressionZstd, RawSize: MaxRawSize}
	parsed, err := ParseDescriptor(valid.Encode())
	if err != nil {
		t.Fatalf("ParseDescriptor: %v", err)
	}
	if parsed != valid {
		t.Errorf("parsed = %+v, want %+v", parsed, valid)
	}

	tests := []struct {
		name       string
		descriptor Descriptor
	}{
		{"raw size above maximum", Descriptor{Key: 3, Size: 100, Compression: CompressionLZ4, RawSize: MaxRawSize + 1}},
		{"raw size at uint32 limit", Descriptor{Key: 3, Size: 100, Compression: CompressionZstd, RawSize: 0xFFFFFFFF}},
		{"size below minimum", Descriptor{Key: 3, Size: 1}},
	}
	for _, test := range tests {
		if _, err := ParseDescriptor(test.descriptor.Encode()); err == nil {
			t.Errorf("%s: ParseDescriptor succeeded", test.name)
		}
	}
	if _, err := ParseDescriptor(make([]byte, 9)); err == nil {
		t.Error("ParseDescriptor accepted a 9-byte payload")
	}
}

func TestUnknownCodeDefaults(t *testing.T) {
	attributes := Requests.Lookup(Code('Q'))
	if attributes.Known || attributes.Overriding || attributes.Privileged || attributes.Configure {
		t.Errorf("unknown code attributes = %+v, want zero flags", attributes)
	}
	if attributes.Name != "0x51" {
		t.Errorf("unknown code name = %q, want 0x51", attributes.Name)
	}
}

func TestAttributeTables(t *testing.T) {
	overriding := map[Code]bool{
		EventLoadFailed: true, EventFavicon: true, EventURL: true, EventTitle: true,
		EventStatus: true, EventTooltip: true, EventAudio: true,
	}
	for _, code := range Events.Codes() {
		if got := Events.Lookup(code).Overriding; got != overriding[code] {
			t.Errorf("%s overriding = %v, want %v", Events.Name(code), got, overriding[code])
		}
	}
	configure := []Code{RequestNavigate, RequestSetOption, RequestFilterResourceURLs, RequestSetHeaders, RequestInjectCSS, RequestInjectJS}
	for _, code := range configure {
		if !Requests.Lookup(code).Configure {
			t.Errorf("%s is not a configure request", Requests.Name(code))
		}
	}
	if !Requests.Lookup(RequestInjectJS).Privileged {
		t.Error("inject_js is not privileged")
	}
	if Requests.Lookup(RequestNavigate).Privileged {
		t.Error("navigate is privileged")
	}
}

func TestReplyTable(t *testing.T) {
	table := NewReplyTable()
	first := table.Register(Continuation{Kind: ContinueDialog, Subject: 7})
	second := table.Register(Continuation{Kind: ContinueAuth, Subject: 9})
	if first != 1 || second != 2 {
		t.Fatalf("ids = %d, %d; want 1, 2", first, second)
	}

	continuation, ok := table.Resolve(second)
	if !ok || continuation != (Continuation{Kind: ContinueAuth, Subject: 9}) {
		t.Errorf("Resolve(2) = %+v, %v", continuation, ok)
	}
	if _, ok := table.Resolve(second); ok {
		t.Error("second Resolve of the same id succeeded")
	}
	if _, ok := table.Resolve(99); ok {
		t.Error("Resolve of an unknown id succeeded")
	}

	if dropped := table.Drop(); dropped != 1 {
		t.Errorf("Drop = %d, want 1", dropped)
	}
	if third := table.Register(Continuation{Kind: ContinueFileDialog}); third != 3 {
		t.Errorf("id after Drop = %d, want 3", third)
	}
}

func TestParseReply(t *testing.T) {
	id, value, ok := ParseReply(strview.View(ReplyPayload(12, "1\x01typed")))
	if !ok || id != 12 || !value.Equal("1\x01typed") {
		t.Errorf("ParseReply = %d, %q, %v", id, value, ok)
	}
	if _, _, ok := ParseReply(strview.FromString("\x01value")); ok {
		t.Error("reply without id parsed")
	}
}

func TestParseCompression(t *testing.T) {
	tests := map[string]Compression{"": CompressionNone, "0": CompressionNone, "1": CompressionLZ4, "lz4": CompressionLZ4, "zstd": CompressionZstd}
	for input, want := range tests {
		got, err := ParseCompression(input)
		if err != nil || got != want {
			t.Errorf("ParseCompression(%q) = %v, %v; want %v", input, got, err, want)
		}
	}
	if _, err := ParseCompression("brotli"); err == nil {
		t.Error("ParseCompression(brotli) succeeded")
	}
}
