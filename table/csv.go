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
	"encoding/csv"
	"io"
	"strconv"

	"github.com/khoIT/mlops-demo-sub003/errs"
)

// 欄位順序是相容性合約，請勿重排。
var (
	PlayersHeader = []string{
		"game_user_id", "install_id", "install_time", "campaign_id", "adset_id",
		"creative_id", "channel", "country", "os", "device_model", "device_tier",
		"consent_tracking", "consent_marketing",
	}
	EventsHeader = []string{
		"game_user_id", "event_time", "event_name", "session_id", "params",
	}
	PaymentsHeader = []string{
		"game_user_id", "txn_time", "amount_usd", "product_sku", "payment_channel", "is_refund",
	}
	UACostsHeader = []string{
		"campaign_id", "date", "spend", "impressions", "clicks", "installs",
	}
	LabelsHeader = []string{
		"game_user_id", "install_date", "ua_cost",
		"ltv_d3", "ltv_d7", "ltv_d30", "ltv_d90",
		"is_payer_by_d3", "is_payer_by_d7", "is_payer_by_d30", "is_payer_by_d90",
		"profit_d90", "late_monetizer_flag", "false_early_payer_flag",
		"active_days_w7d", "sessions_cnt_w7d", "max_level_w7d",
	}
)

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func money(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// WritePlayersCSV 輸出 players 表。
// 引號/逗號/換行的跳脫交給 encoding/csv（內部引號以雙引號成對表示）。
func WritePlayersCSV(w io.Writer, rows []Player) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PlayersHeader); err != nil {
		return errs.Wrap(err, "write players header")
	}
	for i := range rows {
		r := &rows[i]
		rec := []string{
			r.GameUserID, r.InstallID, FormatTime(r.InstallTime),
			r.CampaignID, r.AdsetID, r.CreativeID, r.Channel, r.Country,
			r.OS, r.DeviceModel, r.DeviceTier,
			flag(r.ConsentTracking), flag(r.ConsentMarketing),
		}
		if err := cw.Write(rec); err != nil {
			return errs.Wrap(err, "write players row")
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEventsCSV 輸出 events 表。
func WriteEventsCSV(w io.Writer, rows []Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(EventsHeader); err != nil {
		return errs.Wrap(err, "write events header")
	}
	for i := range rows {
		r := &rows[i]
		rec := []string{
			r.GameUserID, FormatTime(r.EventTime), r.EventName, r.SessionID,
			r.Params.Encode(),
		}
		if err := cw.Write(rec); err != nil {
			return errs.Wrap(err, "write events row")
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePaymentsCSV 輸出 payments 表。
func WritePaymentsCSV(w io.Writer, rows []Payment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PaymentsHeader); err != nil {
		return errs.Wrap(err, "write payments header")
	}
	for i := range rows {
		r := &rows[i]
		rec := []string{
			r.GameUserID, FormatTime(r.TxnTime), money(r.AmountUSD),
			r.ProductSKU, r.PaymentChannel, flag(r.IsRefund),
		}
		if err := cw.Write(rec); err != nil {
			return errs.Wrap(err, "write payments row")
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteUACostsCSV 輸出 ua_costs 表。
func WriteUACostsCSV(w io.Writer, rows []UACost) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(UACostsHeader); err != nil {
		return errs.Wrap(err, "write ua_costs header")
	}
	for i := range rows {
		r := &rows[i]
		rec := []string{
			r.CampaignID, r.Date, money(r.Spend),
			strconv.Itoa(r.Impressions), strconv.Itoa(r.Clicks), strconv.Itoa(r.Installs),
		}
		if err := cw.Write(rec); err != nil {
			return errs.Wrap(err, "write ua_costs row")
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteLabelsCSV 輸出 labels 表。
func WriteLabelsCSV(w io.Writer, rows []LabelRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(LabelsHeader); err != nil {
		return errs.Wrap(err, "write labels header")
	}
	for i := range rows {
		r := &rows[i]
		rec := []string{
			r.GameUserID, r.InstallDate, money(r.UACost),
			money(r.LTVD3), money(r.LTVD7), money(r.LTVD30), money(r.LTVD90),
			flag(r.PayerD3), flag(r.PayerD7), flag(r.PayerD30), flag(r.PayerD90),
			money(r.ProfitD90), flag(r.LateMonetizer), flag(r.FalseEarlyPayer),
			strconv.Itoa(r.ActiveDaysW7), strconv.Itoa(r.SessionsCntW7), strconv.Itoa(r.MaxLevelW7),
		}
		if err := cw.Write(rec); err != nil {
			return errs.Wrap(err, "write labels row")
		}
	}
	cw.Flush()
	return cw.Error()
}

// ------------------------------------------------------------
// 讀取端
// ------------------------------------------------------------

// readAll 讀整張表並做表頭檢查：欄位必須與 want 完全一致（含順序）。
// 表頭不符屬於結構性壞輸入，回傳 MalformedInput。
func readAll(r io.Reader, name string, want []string) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(want)
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, errs.Wrap(errs.MalformedInputf("table %s: bad csv", name), err.Error())
	}
	if len(recs) == 0 {
		return nil, errs.MalformedInputf("table %s: missing header", name)
	}
	head := recs[0]
	for i, col := range want {
		if head[i] != col {
			return nil, errs.MalformedInputf("table %s: column %d must be %q, got %q", name, i, col, head[i])
		}
	}
	return recs[1:], nil
}

func parseFlag(s string) bool { return s == "1" || s == "true" }

func parseF(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseI(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// ReadPlayersCSV 讀入 players 表，表頭不符回傳 MalformedInput。
func ReadPlayersCSV(r io.Reader) ([]Player, error) {
	recs, err := readAll(r, "players", PlayersHeader)
	if err != nil {
		return nil, err
	}
	out := make([]Player, 0, len(recs))
	for _, rec := range recs {
		ts, err := ParseTime(rec[2])
		if err != nil {
			return nil, errs.MalformedInputf("players: bad install_time %q", rec[2])
		}
		out = append(out, Player{
			GameUserID: rec[0], InstallID: rec[1], InstallTime: ts,
			CampaignID: rec[3], AdsetID: rec[4], CreativeID: rec[5],
			Channel: rec[6], Country: rec[7], OS: rec[8],
			DeviceModel: rec[9], DeviceTier: rec[10],
			ConsentTracking: parseFlag(rec[11]), ConsentMarketing: parseFlag(rec[12]),
		})
	}
	return out, nil
}

// ReadEventsCSV 讀入 events 表。
func ReadEventsCSV(r io.Reader) ([]Event, error) {
	recs, err := readAll(r, "events", EventsHeader)
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(recs))
	for _, rec := range recs {
		ts, err := ParseTime(rec[1])
		if err != nil {
			return nil, errs.MalformedInputf("events: bad event_time %q", rec[1])
		}
		out = append(out, Event{
			GameUserID: rec[0], EventTime: ts, EventName: rec[2],
			SessionID: rec[3], Params: ParseParams(rec[4]),
		})
	}
	return out, nil
}

// ReadPaymentsCSV 讀入 payments 表。
func ReadPaymentsCSV(r io.Reader) ([]Payment, error) {
	recs, err := readAll(r, "payments", PaymentsHeader)
	if err != nil {
		return nil, err
	}
	out := make([]Payment, 0, len(recs))
	for _, rec := range recs {
		ts, err := ParseTime(rec[1])
		if err != nil {
			return nil, errs.MalformedInputf("payments: bad txn_time %q", rec[1])
		}
		out = append(out, Payment{
			GameUserID: rec[0], TxnTime: ts, AmountUSD: parseF(rec[2]),
			ProductSKU: rec[3], PaymentChannel: rec[4], IsRefund: parseFlag(rec[5]),
		})
	}
	return out, nil
}

// ReadUACostsCSV 讀入 ua_costs 表。
func ReadUACostsCSV(r io.Reader) ([]UACost, error) {
	recs, err := readAll(r, "ua_costs", UACostsHeader)
	if err != nil {
		return nil, err
	}
	out := make([]UACost, 0, len(recs))
	for _, rec := range recs {
		out = append(out, UACost{
			CampaignID: rec[0], Date: rec[1], Spend: parseF(rec[2]),
			Impressions: parseI(rec[3]), Clicks: parseI(rec[4]), Installs: parseI(rec[5]),
		})
	}
	return out, nil
}

// ReadLabelsCSV 讀入 labels 表。
func ReadLabelsCSV(r io.Reader) ([]LabelRow, error) {
	recs, err := readAll(r, "labels", LabelsHeader)
	if err != nil {
		return nil, err
	}
	out := make([]LabelRow, 0, len(recs))
	for _, rec := range recs {
		out = append(out, LabelRow{
			GameUserID: rec[0], InstallDate: rec[1], UACost: parseF(rec[2]),
			LTVD3: parseF(rec[3]), LTVD7: parseF(rec[4]),
			LTVD30: parseF(rec[5]), LTVD90: parseF(rec[6]),
			PayerD3: parseFlag(rec[7]), PayerD7: parseFlag(rec[8]),
			PayerD30: parseFlag(rec[9]), PayerD90: parseFlag(rec[10]),
			ProfitD90: parseF(rec[11]),
			LateMonetizer: parseFlag(rec[12]), FalseEarlyPayer: parseFlag(rec[13]),
			ActiveDaysW7: parseI(rec[14]), SessionsCntW7: parseI(rec[15]), MaxLevelW7: parseI(rec[16]),
		})
	}
	return out, nil
}
