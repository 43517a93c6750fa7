package netmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// DeviceInfo is the list_json report.
type DeviceInfo struct {
	Name       string   `json:"Name"`
	OnTheFlyLP bool     `json:"OfLpEnc"`
	Disc       DiscInfo `json:"Disc"`
}

// DiscInfo describes the inserted MD.
type DiscInfo struct {
	Name         string      `json:"Name"`
	TotalSeconds int         `json:"TotSec"`
	FreeSeconds  int         `json:"FreeSec"`
	TrackCount   int         `json:"TCount"`
	Groups       []GroupInfo `json:"Groups"`
	Tracks       []TrackInfo `json:"Tracks"`
}

// GroupInfo is a named track group.
type GroupInfo struct {
	Name   string      `json:"Name"`
	Tracks []TrackInfo `json:"Tracks"`
}

// TrackInfo is one track already on the MD.
type TrackInfo struct {
	Number   int    `json:"No"`
	Name     string `json:"Name"`
	Length   string `json:"Length"`
	Encoding string `json:"Enc"`
}

// Blank reports whether the disc holds no recorded audio.
func (d DiscInfo) Blank() bool {
	return d.TotalSeconds == d.FreeSeconds
}

// ParseInfo decodes list_json output. Anything after the final '}' (and
// before the first '{') is tool chatter and ignored.
func ParseInfo(raw []byte) (DeviceInfo, error) {
	start := bytes.IndexByte(raw, '{')
	end := bytes.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return DeviceInfo{}, errors.New("no JSON object in device report")
	}
	var info DeviceInfo
	if err := json.Unmarshal(raw[start:end+1], &info); err != nil {
		return DeviceInfo{}, fmt.Errorf("decode device report: %w", err)
	}
	return info, nil
}
