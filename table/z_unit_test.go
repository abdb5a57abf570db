// Copyright 2025 khoIT
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package table

import (
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParamsRoundTrip(t *testing.T) {
	p := Params{{Key: "result", Val: "win"}, {Key: "level", Val: "9"}}
	enc := p.Encode()
	if enc != "result=win;level=9" {
		t.Fatalf("encode: %q", enc)
	}
	back := ParseParams(enc)
	if !reflect.DeepEqual(back, p) {
		t.Fatalf("round trip: %+v", back)
	}
	if v, ok := back.Get("level"); !ok || v != "9" {
		t.Fatalf("get: %q %v", v, ok)
	}
	if _, ok := back.Get("missing"); ok {
		t.Fatalf("missing key resolved")
	}
	if got := ParseParams(""); got != nil {
		t.Fatalf("empty params: %v", got)
	}
	// 缺 `=` 片段寬容解析成空值 key
	if got := ParseParams("solo"); len(got) != 1 || got[0].Key != "solo" || got[0].Val != "" {
		t.Fatalf("lenient parse: %+v", got)
	}
}

func TestTimeFormatting(t *testing.T) {
	if got := FormatTime(Epoch); got != "2025-01-01T00:00:00Z" {
		t.Fatalf("epoch format: %q", got)
	}
	ts, err := ParseTime("2025-01-01T00:00:00Z")
	if err != nil || ts != Epoch {
		t.Fatalf("parse: %d %v", ts, err)
	}
	if got := FormatDate(Epoch + 3*DaySeconds); got != "2025-01-04" {
		t.Fatalf("date format: %q", got)
	}
}

func TestPaymentsCSVRoundTrip(t *testing.T) {
	rows := []Payment{
		{GameUserID: "u1", TxnTime: Epoch + 100, AmountUSD: 4.99, ProductSKU: "gem_small", PaymentChannel: "appstore", IsRefund: false},
		{GameUserID: "u2", TxnTime: Epoch + 200, AmountUSD: 99.99, ProductSKU: "gem_XL", PaymentChannel: "play", IsRefund: true},
	}
	var buf bytes.Buffer
	if err := WritePaymentsCSV(&buf, rows); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.HasPrefix(buf.String(), strings.Join(PaymentsHeader, ",")) {
		t.Fatalf("header missing:\n%s", buf.String())
	}
	back, err := ReadPaymentsCSV(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(back, rows) {
		t.Fatalf("round trip:\n%+v\n%+v", back, rows)
	}
}

func TestReadRejectsBadHeader(t *testing.T) {
	in := strings.NewReader("wrong,header,entirely,x,y,z\n")
	if _, err := ReadPaymentsCSV(in); err == nil {
		t.Fatalf("expected header error")
	}
}

func TestEventsCSVKeepsParams(t *testing.T) {
	rows := []Event{
		{GameUserID: "u1", EventTime: Epoch, EventName: "pvp_battle", SessionID: "s1",
			Params: Params{{Key: "result", Val: "win"}}},
		{GameUserID: "u1", EventTime: Epoch + 60, EventName: "session_end", SessionID: "s1"},
	}
	var buf bytes.Buffer
	if err := WriteEventsCSV(&buf, rows); err != nil {
		t.Fatalf("write: %v", err)
	}
	back, err := ReadEventsCSV(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(back, rows) {
		t.Fatalf("round trip:\n%+v\n%+v", back, rows)
	}
}

func TestSortEventsStable(t *testing.T) {
	evts := []Event{
		{GameUserID: "u2", EventTime: 10, EventName: "b"},
		{GameUserID: "u1", EventTime: 20, EventName: "a"},
		{GameUserID: "u1", EventTime: 10, EventName: "z"},
		{GameUserID: "u1", EventTime: 10, EventName: "a"},
	}
	SortEventsStable(evts)
	want := []Event{
		{GameUserID: "u1", EventTime: 10, EventName: "a"},
		{GameUserID: "u1", EventTime: 10, EventName: "z"},
		{GameUserID: "u1", EventTime: 20, EventName: "a"},
		{GameUserID: "u2", EventTime: 10, EventName: "b"},
	}
	if !reflect.DeepEqual(evts, want) {
		t.Fatalf("order:\n%+v", evts)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ds := &Dataset{
		Players:  []Player{{GameUserID: "u1", InstallTime: Epoch, OS: "ios"}},
		Payments: []Payment{{GameUserID: "u1", TxnTime: Epoch + 50, AmountUSD: 9.99}},
		Labels:   []LabelRow{{GameUserID: "u1", InstallDate: "2025-01-01", LTVD30: 9.99, LTVD90: 9.99, PayerD90: true}},
	}
	path := filepath.Join(t.TempDir(), "nested", "snap.json.zst")
	if err := SaveSnapshot(path, ds); err != nil {
		t.Fatalf("save: %v", err)
	}
	back, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(back, ds) {
		t.Fatalf("round trip:\n%+v\n%+v", back, ds)
	}
}

func TestSnapshotGuards(t *testing.T) {
	if err := SaveSnapshot(filepath.Join(t.TempDir(), "x.zst"), nil); err == nil {
		t.Fatalf("nil dataset accepted")
	}
	if _, err := LoadSnapshot(filepath.Join(t.TempDir(), "missing.zst")); err == nil {
		t.Fatalf("missing file accepted")
	}
}
