// Package layout infers per-channel speaker positions and the BS.1770
// channel-weighting mode from a WAV extensible channel mask and/or an
// FFmpeg-style layout string. Resolution is pure and never fails hard:
// unresolvable inputs produce an Unresolved result with a reason token and
// downstream weighting degrades to uniform gain.
package layout

import "strings"

// Position identifies a speaker position using the WAVEFORMATEXTENSIBLE
// vocabulary.
type Position string

const (
	FL  Position = "FL"
	FR  Position = "FR"
	FC  Position = "FC"
	LFE Position = "LFE"
	BL  Position = "BL"
	BR  Position = "BR"
	FLC Position = "FLC"
	FRC Position = "FRC"
	BC  Position = "BC"
	SL  Position = "SL"
	SR  Position = "SR"
)

// Mask-detail tokens reported by PositionsForChannels.
const (
	MaskMissing        = "mask_missing"
	MaskUnderspecified = "mask_underspecified"
	MaskKnown          = "mask_known"
	MaskTrimmed        = "mask_trimmed"
)

// Layout-detail tokens reported by ParseFFmpegLayout.
const (
	LayoutMissing            = "layout_missing"
	LayoutUnknown            = "layout_unknown"
	LayoutUnmapped           = "layout_unmapped"
	LayoutListUnderspecified = "layout_list_underspecified"
	LayoutListTrimmed        = "layout_list_trimmed"
	LayoutListExact          = "layout_list_exact"
	LayoutTrimmed            = "layout_trimmed"
)

// maskBits maps WAV extensible channel-mask bits to positions in the
// canonical mask order.
var maskBits = []struct {
	bit uint32
	pos Position
}{
	{0x00000001, FL},
	{0x00000002, FR},
	{0x00000004, FC},
	{0x00000008, LFE},
	{0x00000010, BL},
	{0x00000020, BR},
	{0x00000040, FLC},
	{0x00000080, FRC},
	{0x00000100, BC},
	{0x00000200, SL},
	{0x00000400, SR},
}

var ffmpegTokens = map[string]Position{
	"fl":  FL,
	"fr":  FR,
	"fc":  FC,
	"lfe": LFE,
	"bl":  BL,
	"br":  BR,
	"sl":  SL,
	"sr":  SR,
	"flc": FLC,
	"frc": FRC,
	"bc":  BC,
}

var ffmpegNamedLayouts = map[string][]Position{
	"mono":           {FC},
	"stereo":         {FL, FR},
	"2.1":            {FL, FR, LFE},
	"3.0":            {FL, FR, FC},
	"3.0(back)":      {FL, FR, BC},
	"3.1":            {FL, FR, FC, LFE},
	"quad":           {FL, FR, BL, BR},
	"quad(side)":     {FL, FR, SL, SR},
	"4.0":            {FL, FR, FC, BC},
	"4.1":            {FL, FR, FC, LFE, BC},
	"5.0":            {FL, FR, FC, BL, BR},
	"5.0(side)":      {FL, FR, FC, SL, SR},
	"5.1":            {FL, FR, FC, LFE, BL, BR},
	"5.1(side)":      {FL, FR, FC, LFE, SL, SR},
	"6.0":            {FL, FR, FC, BC, SL, SR},
	"6.0(front)":     {FL, FR, FLC, FRC, SL, SR},
	"6.1":            {FL, FR, FC, LFE, BC, SL, SR},
	"7.0":            {FL, FR, FC, BL, BR, SL, SR},
	"7.0(front)":     {FL, FR, FC, FLC, FRC, SL, SR},
	"7.1":            {FL, FR, FC, LFE, BL, BR, SL, SR},
	"7.1(wide)":      {FL, FR, FC, LFE, FLC, FRC, SL, SR},
	"7.1(wide-side)": {FL, FR, FC, LFE, FLC, FRC, SL, SR},
	"7.1(side)":      {FL, FR, FC, LFE, BL, BR, SL, SR},
}

// PositionsFromMask returns the positions for the set mask bits in canonical
// order, unpadded.
func PositionsFromMask(mask uint32) []Position {
	var positions []Position
	for _, entry := range maskBits {
		if mask&entry.bit != 0 {
			positions = append(positions, entry.pos)
		}
	}
	return positions
}

// PositionsForChannels aligns the mask positions to the channel count.
// It returns nil positions when the mask is absent or sets fewer bits than
// there are channels; excess bits are trimmed.
func PositionsForChannels(mask uint32, channels int) ([]Position, string) {
	if mask == 0 {
		return nil, MaskMissing
	}

	positions := PositionsFromMask(mask)
	if len(positions) < channels {
		return nil, MaskUnderspecified
	}
	if len(positions) > channels {
		return positions[:channels], MaskTrimmed
	}
	return positions, MaskKnown
}

// SanitizeLayoutToken converts a normalized FFmpeg layout name into the
// stable token used inside mode strings: dots removed, parenthetical
// modifiers turned into underscore suffixes.
func SanitizeLayoutToken(normalized string) string {
	token := strings.ReplaceAll(normalized, ".", "")
	token = strings.ReplaceAll(token, "(side)", "_side")
	token = strings.ReplaceAll(token, "(wide)", "_wide")
	token = strings.ReplaceAll(token, "(", "_")
	token = strings.ReplaceAll(token, ")", "")
	token = strings.ReplaceAll(token, "-", "_")
	for strings.Contains(token, "__") {
		token = strings.ReplaceAll(token, "__", "_")
	}
	return strings.Trim(token, "_")
}

// ParseFFmpegLayout resolves an FFmpeg-style layout string: either a
// '+'-joined explicit token list or a named layout. The detail token is
// either one of the Layout* constants or, for an exact named match, the
// sanitized layout token itself.
func ParseFFmpegLayout(layoutStr string, channels int) ([]Position, string) {
	positions, detail, _ := parseFFmpegLayout(layoutStr, channels)
	return positions, detail
}

func parseFFmpegLayout(layoutStr string, channels int) ([]Position, string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(layoutStr))
	if normalized == "" {
		return nil, LayoutMissing, false
	}
	if normalized == "unknown" {
		return nil, LayoutUnknown, false
	}

	if strings.Contains(normalized, "+") {
		var positions []Position
		for _, token := range strings.Split(normalized, "+") {
			if token == "" {
				continue
			}
			pos, ok := ffmpegTokens[token]
			if !ok {
				return nil, LayoutUnmapped, false
			}
			positions = append(positions, pos)
		}
		if positions == nil {
			return nil, LayoutUnmapped, false
		}
		if len(positions) < channels {
			return nil, LayoutListUnderspecified, false
		}
		if len(positions) > channels {
			return positions[:channels], LayoutListTrimmed, false
		}
		return positions, LayoutListExact, false
	}

	named, ok := ffmpegNamedLayouts[normalized]
	if !ok {
		return nil, LayoutUnmapped, false
	}
	if len(named) < channels {
		return nil, LayoutListUnderspecified, false
	}
	if len(named) > channels {
		trimmed := make([]Position, channels)
		copy(trimmed, named)
		return trimmed, LayoutTrimmed, false
	}
	positions := make([]Position, len(named))
	copy(positions, named)
	return positions, SanitizeLayoutToken(normalized), true
}
