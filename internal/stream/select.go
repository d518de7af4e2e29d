package stream

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"ytkit/internal/core"
)

// SelectFormat applies spec.md §3's filter composition rule — a
// format is accepted iff it matches every positive filter AND no
// negative filter, with the basic Filter enum combining by
// conjunction with the field filters — and then picks the
// most-preferred accepted format per opts.Quality, falling back to
// the first accepted format in declaration order.
func SelectFormat(formats []core.VideoFormat, opts core.DownloadOptions) (core.VideoFormat, error) {
	var accepted []core.VideoFormat
	for _, f := range formats {
		if formatAccepted(f, opts) {
			accepted = append(accepted, f)
		}
	}
	if len(accepted) == 0 {
		return core.VideoFormat{}, fmt.Errorf("no format matches the requested filters")
	}

	for _, pref := range opts.Quality {
		for _, f := range accepted {
			if formatMatchesQuality(f, pref) {
				return f, nil
			}
		}
	}
	return accepted[0], nil
}

func formatAccepted(f core.VideoFormat, opts core.DownloadOptions) bool {
	if !basicFilterAccepts(f, opts.Filter) {
		return false
	}
	if !regexAccepts(f.Container, opts.FilterContainer, opts.UnfilterContainer) {
		return false
	}
	if !regexAccepts(f.QualityLabel, opts.FilterResolution, opts.UnfilterResolution) {
		return false
	}
	if !regexAccepts(f.Codecs, opts.FilterCodecs, opts.UnfilterCodecs) {
		return false
	}
	return true
}

func basicFilterAccepts(f core.VideoFormat, filter core.Filter) bool {
	hasVideo, hasAudio := formatHasVideo(f), formatHasAudio(f)
	switch filter {
	case "":
		return true
	case core.FilterVideo:
		return hasVideo
	case core.FilterVideoOnly:
		return hasVideo && !hasAudio
	case core.FilterAudio:
		return hasAudio
	case core.FilterAudioOnly:
		return hasAudio && !hasVideo
	case core.FilterVideoAndAudio:
		return hasVideo && hasAudio
	default:
		return true
	}
}

func formatHasVideo(f core.VideoFormat) bool {
	codecs := strings.ToLower(f.Codecs)
	return !strings.Contains(codecs, "none,none") && (f.QualityLabel != "" || strings.Contains(codecs, "avc") || strings.Contains(codecs, "vp9") || strings.Contains(codecs, "av01"))
}

func formatHasAudio(f core.VideoFormat) bool {
	return f.AudioBitrate > 0 || strings.Contains(strings.ToLower(f.Codecs), "mp4a") || strings.Contains(strings.ToLower(f.Codecs), "opus")
}

func regexAccepts(value, include, exclude string) bool {
	if include != "" {
		re, err := regexp.Compile(include)
		if err != nil || !re.MatchString(value) {
			return false
		}
	}
	if exclude != "" {
		re, err := regexp.Compile(exclude)
		if err == nil && re.MatchString(value) {
			return false
		}
	}
	return true
}

func formatMatchesQuality(f core.VideoFormat, pref string) bool {
	if pref == "" {
		return false
	}
	if n, err := strconv.Atoi(pref); err == nil && n == f.Itag {
		return true
	}
	return strings.EqualFold(pref, f.QualityLabel)
}
