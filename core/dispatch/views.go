package dispatch

import (
	"quarkdapp/crypto"
	"quarkdapp/native/dapp"
)

// OrderView is the JSON rendering of a stored order.
type OrderView struct {
	OrderKey         string `json:"order_key"`
	Status           string `json:"status"`
	Timestamp        int64  `json:"timestamp"`
	UTCOffset        int64  `json:"utc_offset"`
	SrcCurrency      string `json:"src_currency"`
	DstCurrency      string `json:"dst_currency"`
	Course           string `json:"course"`
	Amount           string `json:"amount"`
	SrcWallet        string `json:"src_wallet"`
	DstWallet        string `json:"dst_wallet"`
	DepositWallet    string `json:"deposit_wallet"`
	DepositAmount    string `json:"deposit_amount"`
	Fee              string `json:"fee"`
	Oracle           string `json:"oracle"`
	TimeMargin       int64  `json:"time_margin"`
	MinTime          int64  `json:"min_time"`
	MaxTime          int64  `json:"max_time"`
	PayoutThreshold  int64  `json:"payout_threshold"`
	DappName         string `json:"dapp_name"`
	CreatedAt        int64  `json:"created_at"`
	FundsTransferred int64  `json:"funds_transferred"`
	OracleCost       string `json:"oracle_cost"`
	NoticedAt        int64  `json:"noticed_at,omitempty"`
	MatchedWith      string `json:"matched_with,omitempty"`
	MatchCourse      string `json:"match_course,omitempty"`
	SettledAt        int64  `json:"settled_at,omitempty"`
}

// NewOrderView renders o.
func NewOrderView(o *dapp.Order) OrderView {
	return OrderView{
		OrderKey:         o.Key,
		Status:           o.Status.String(),
		Timestamp:        o.Timestamp,
		UTCOffset:        o.UTCOffset,
		SrcCurrency:      o.SrcCurrency,
		DstCurrency:      o.DstCurrency,
		Course:           o.Course,
		Amount:           o.Amount.String(),
		SrcWallet:        crypto.FormatPrincipal(o.SrcWallet),
		DstWallet:        crypto.FormatPrincipal(o.DstWallet),
		DepositWallet:    crypto.FormatPrincipal(o.DepositWallet),
		DepositAmount:    o.DepositAmount.String(),
		Fee:              o.Fee.String(),
		Oracle:           crypto.FormatPrincipal(o.Oracle),
		TimeMargin:       o.TimeMargin,
		MinTime:          o.MinTime,
		MaxTime:          o.MaxTime,
		PayoutThreshold:  o.PayoutThreshold,
		DappName:         o.DappName,
		CreatedAt:        o.CreatedAt,
		FundsTransferred: o.FundsTransferred,
		OracleCost:       o.OracleCost.String(),
		NoticedAt:        o.NoticedAt,
		MatchedWith:      o.MatchedWith,
		MatchCourse:      o.MatchCourse,
		SettledAt:        o.SettledAt,
	}
}

// ClaimView is the JSON rendering of a claim result.
type ClaimView struct {
	Outcome        string `json:"outcome"`
	PaidOut        bool   `json:"paid_out"`
	InsurerPayout  string `json:"insurer_payout"`
	CustomerPayout string `json:"customer_payout"`
	OracleCost     string `json:"oracle_cost"`
}

// NewClaimView renders res.
func NewClaimView(res *dapp.ClaimResult) ClaimView {
	return ClaimView{
		Outcome:        res.Outcome.String(),
		PaidOut:        res.Outcome == dapp.ClaimPaidOut,
		InsurerPayout:  res.InsurerPayout.String(),
		CustomerPayout: res.CustomerPayout.String(),
		OracleCost:     res.OracleCost.String(),
	}
}
