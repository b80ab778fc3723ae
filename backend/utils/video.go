package utils

import (
	"net/url"
	"regexp"
	"strings"
)

type VideoProvider string

const (
	VideoNone    VideoProvider = ""
	VideoYouTube VideoProvider = "youtube"
	VideoVimeo   VideoProvider = "vimeo"
)

// VideoEmbed is a player reference the frontend can drop into an iframe.
// A zero value means "no video".
type VideoEmbed struct {
	Provider VideoProvider `json:"provider,omitempty"`
	ID       string        `json:"id,omitempty"`
	EmbedURL string        `json:"embed_url,omitempty"`
}

func (v VideoEmbed) Available() bool { return v.Provider != VideoNone }

var (
	youTubeID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	vimeoID   = regexp.MustCompile(`^[0-9]{6,12}$`)
)

// EmbedVideo normalises a lesson's raw video reference. The reference must
// name a known host; bare ids, unknown hosts, malformed ids and empty input
// all yield the zero VideoEmbed.
func EmbedVideo(raw string) VideoEmbed {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return VideoEmbed{}
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return VideoEmbed{}
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })

	switch host {
	case "youtu.be":
		if len(segments) > 0 && youTubeID.MatchString(segments[0]) {
			return youTube(segments[0])
		}
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if id := u.Query().Get("v"); youTubeID.MatchString(id) {
			return youTube(id)
		}
		if len(segments) >= 2 {
			switch segments[0] {
			case "embed", "shorts", "live", "v":
				if youTubeID.MatchString(segments[1]) {
					return youTube(segments[1])
				}
			}
		}
	case "vimeo.com", "player.vimeo.com":
		for i := len(segments) - 1; i >= 0; i-- {
			if vimeoID.MatchString(segments[i]) {
				return VideoEmbed{
					Provider: VideoVimeo,
					ID:       segments[i],
					EmbedURL: "https://player.vimeo.com/video/" + segments[i],
				}
			}
		}
	}
	return VideoEmbed{}
}

func youTube(id string) VideoEmbed {
	return VideoEmbed{
		Provider: VideoYouTube,
		ID:       id,
		EmbedURL: "https://www.youtube.com/embed/" + id,
	}
}
