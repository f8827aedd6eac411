package layout

import "strings"

// Resolution is the outcome of the mask -> layout-string -> unknown
// resolution chain. Positions is nil when nothing resolved; Mode is a stable
// diagnostic token consumed downstream, so its vocabulary must not change.
type Resolution struct {
	Positions    []Position
	OrderCSV     string
	Mode         string
	MaskDetail   string
	LayoutDetail string
}

// Resolved reports whether per-channel positions were inferred.
func (r Resolution) Resolved() bool { return r.Positions != nil }

type rearKind int

const (
	rearNone rearKind = iota
	rearBack
	rearSide
	rearBoth
)

func classifyPositions(positions []Position) (rear rearKind, hasLFE bool) {
	var side, back bool
	for _, pos := range positions {
		switch pos {
		case SL, SR:
			side = true
		case BL, BR:
			back = true
		case LFE:
			hasLFE = true
		}
	}
	switch {
	case side && back:
		rear = rearBoth
	case side:
		rear = rearSide
	case back:
		rear = rearBack
	}
	return rear, hasLFE
}

// surroundDescriptor is the decision table for specialized weighting-mode
// descriptors. The channel-count and LFE conditions are literal: only the
// 5.1-shaped and 7.1-shaped configurations qualify.
func surroundDescriptor(channels int, hasLFE bool, rear rearKind) string {
	switch {
	case channels == 6 && hasLFE && rear == rearSide:
		return "51_sl_sr_surround"
	case channels == 6 && hasLFE && rear == rearBack:
		return "51_blbr_surround"
	case channels >= 8 && hasLFE && rear == rearBoth:
		return "71_sl_sr_surround_blbr_rear"
	}
	return ""
}

func orderCSV(positions []Position) string {
	if len(positions) == 0 {
		return "unknown"
	}
	parts := make([]string, len(positions))
	for i, pos := range positions {
		parts[i] = string(pos)
	}
	return strings.Join(parts, ",")
}

// Resolve runs the full resolution chain: channel mask first, layout string
// as fallback, and a chained fallback_* reason when both fail. A zero mask
// counts as missing, an empty layout string as absent. Identical inputs
// always produce identical results.
func Resolve(channels int, mask uint32, layoutStr string) Resolution {
	positions, maskDetail := PositionsForChannels(mask, channels)
	if positions != nil {
		mode := MaskKnown
		if maskDetail == MaskTrimmed {
			mode = "mask_known_mask_trimmed"
		}
		rear, hasLFE := classifyPositions(positions)
		if desc := surroundDescriptor(channels, hasLFE, rear); desc != "" {
			mode += "_" + desc
		}
		return Resolution{
			Positions:  positions,
			OrderCSV:   orderCSV(positions),
			Mode:       mode,
			MaskDetail: maskDetail,
		}
	}

	if layoutStr == "" {
		return Resolution{
			OrderCSV:     "unknown",
			Mode:         "fallback_" + LayoutMissing,
			MaskDetail:   maskDetail,
			LayoutDetail: LayoutMissing,
		}
	}

	layoutPositions, layoutDetail, named := parseFFmpegLayout(layoutStr, channels)
	if layoutPositions == nil {
		return Resolution{
			OrderCSV:     "unknown",
			Mode:         "fallback_" + layoutDetail,
			MaskDetail:   maskDetail,
			LayoutDetail: layoutDetail,
		}
	}

	mode := "ffmpeg_layout_known_" + layoutDetail
	if layoutDetail == LayoutTrimmed || layoutDetail == LayoutListTrimmed {
		mode += "_layout_trimmed"
	}
	if named {
		// Named layouts with qualifying side surrounds swap their bare
		// token for the specialized descriptor; plain rear layouts keep it.
		rear, hasLFE := classifyPositions(layoutPositions)
		if rear == rearSide || rear == rearBoth {
			if desc := surroundDescriptor(channels, hasLFE, rear); desc != "" {
				mode = "ffmpeg_layout_known_" + desc
			}
		}
	}
	return Resolution{
		Positions:    layoutPositions,
		OrderCSV:     orderCSV(layoutPositions),
		Mode:         mode,
		MaskDetail:   maskDetail,
		LayoutDetail: layoutDetail,
	}
}

// Weighting returns the per-channel BS.1770 gain vector together with the
// resolution that produced it. LFE channels weigh 0, qualifying surround
// pairs 1.41 (side surrounds win over rears when both are present), and an
// unresolved layout degrades to uniform 1.0 gain.
func Weighting(channels int, mask uint32, layoutStr string) ([]float64, Resolution) {
	weights := make([]float64, channels)
	for i := range weights {
		weights[i] = 1.0
	}

	res := Resolve(channels, mask, layoutStr)
	if !res.Resolved() {
		return weights, res
	}

	hasSide := false
	for _, pos := range res.Positions {
		if pos == SL || pos == SR {
			hasSide = true
			break
		}
	}
	for i, pos := range res.Positions {
		if i >= channels {
			break
		}
		switch {
		case pos == LFE:
			weights[i] = 0.0
		case hasSide && (pos == SL || pos == SR):
			weights[i] = 1.41
		case !hasSide && (pos == BL || pos == BR):
			weights[i] = 1.41
		}
	}
	return weights, res
}
