package domain

// Session is a read-only snapshot of the wallet session state. The wallet
// session manager owns the live state and the provider handle; everything
// else receives copies of this struct and must never cache the Account or
// ChainID across a session change.
type Session struct {
	Account     string `json:"account"` // empty when disconnected
	ChainID     uint64 `json:"chainId"` // 0 when unknown
	Connecting  bool   `json:"connecting"`
	Err         string `json:"error,omitempty"` // last user-facing connect error
	Initialized bool   `json:"initialized"`
}

// Connected reports whether an account is currently authorized.
func (s Session) Connected() bool {
	return s.Account != ""
}
