package netmd

// Modes is the effective encoding plan for a run.
type Modes struct {
	// Transfer is passed to Send: "sp", "lp2" or "lp4".
	Transfer string
	// External is the atracdenc mode, or "no".
	External string
	// Fallback is set when the device could not encode LP on the fly and
	// the run was switched to external encoding.
	Fallback bool
}

// LP reports whether tracks end up in an LP mode.
func (m Modes) LP() bool {
	return m.Transfer == "lp2" || m.Transfer == "lp4" || m.External == "lp2" || m.External == "lp4"
}

// Effective returns the LP mode that determines capacity ("sp" when none).
func (m Modes) Effective() string {
	if m.External == "lp2" || m.External == "lp4" {
		return m.External
	}
	return m.Transfer
}

// ResolveModes moves LP encoding to atracdenc when the device lacks an
// on-the-fly LP encoder.
func ResolveModes(info DeviceInfo, transfer, external string) Modes {
	m := Modes{Transfer: transfer, External: external}
	if (transfer == "lp2" || transfer == "lp4") && !info.OnTheFlyLP {
		m.External = transfer
		m.Transfer = "sp"
		m.Fallback = true
	}
	if m.External != "no" && m.External != "" {
		// Pre-encoded payloads are sent as-is.
		m.Transfer = "sp"
	}
	if m.External == "" {
		m.External = "no"
	}
	return m
}
