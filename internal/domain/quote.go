package domain

import "encoding/json"

// Quote is an immutable aggregator quote for a single hop. Consumed once,
// never mutated; the opaque RoutePlan is passed back verbatim when asking
// the aggregator for a swap transaction.
type Quote struct {
	InputMint   string          `json:"inputMint"`
	OutputMint  string          `json:"outputMint"`
	InAmount    string          `json:"inAmount"`
	OutAmount   string          `json:"outAmount"`
	RoutePlan   json.RawMessage `json:"routePlan,omitempty"`
	ContextSlot uint64          `json:"contextSlot,omitempty"`

	// Raw is the aggregator's full quote response, kept verbatim so the
	// swap-build call can echo fields this service does not model.
	Raw json.RawMessage `json:"-"`
}

// MultiHopQuote chains two single-hop quotes A->B then B->C. The output of
// the first hop is the exact input of the second (no intermediate skim).
type MultiHopQuote struct {
	FirstHop  *Quote
	SecondHop *Quote
	// TotalOut is the second hop's output amount (smallest units, decimal string).
	TotalOut string
}

// SwapBuild is a ready-to-merge swap transaction returned by the aggregator
// for the final hop of a route.
type SwapBuild struct {
	Quote                *Quote
	SwapTransaction      string // base64, unsigned
	LastValidBlockHeight uint64
	PriorityFeeLamports  uint64
}

// SwapBuildOptions tune the aggregator swap-build call.
type SwapBuildOptions struct {
	WrapUnwrapSol           bool
	DynamicComputeUnitLimit bool
	PriorityFeeLamports     uint64
}
