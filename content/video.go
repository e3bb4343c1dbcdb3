package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/hazyhaar/coursesync/extract"
)

const youtubeWatch = "https://www.youtube.com/watch?v="

// youtubeID extracts the video id from watch, embed, shorts and youtu.be URLs.
func youtubeID(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	host = strings.TrimPrefix(host, "m.")

	switch {
	case host == "youtu.be":
		return firstSegment(u.Path)
	case strings.HasSuffix(host, "youtube.com"), strings.HasSuffix(host, "youtube-nocookie.com"):
		if v := u.Query().Get("v"); v != "" {
			return v
		}
		for _, prefix := range []string{"/embed/", "/shorts/", "/live/", "/v/"} {
			if rest, ok := strings.CutPrefix(u.Path, prefix); ok {
				return firstSegment(rest)
			}
		}
	}
	return ""
}

func firstSegment(p string) string {
	p = strings.TrimPrefix(p, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	return p
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

var errNoCaptions = errors.New("no captions available")

// youtubeTranscript reads the caption track list embedded in the watch page
// and flattens the preferred track.
func (n *Normalizer) youtubeTranscript(ctx context.Context, id string) string {
	page, err := n.f.GetRaw(ctx, youtubeWatch+url.QueryEscape(id))
	if err != nil {
		return fmt.Sprintf("[Could not extract transcript: %v]", err)
	}

	tracks, err := captionTracks(page)
	if err != nil {
		return fmt.Sprintf("[Could not extract transcript: %v]", err)
	}
	track := preferTrack(tracks)

	raw, err := n.f.GetRaw(ctx, track.BaseURL+"&fmt=vtt")
	if err != nil {
		return fmt.Sprintf("[Could not extract transcript: %v]", err)
	}
	text := extract.ParseCaptions(string(raw))
	if text == "" {
		return "[Could not extract transcript: caption track is empty]"
	}
	n.logger.Debug("content: youtube transcript", "video_id", id, "lang", track.LanguageCode, "chars", len(text))
	return text
}

// captionTracks decodes the "captionTracks" array of the player response
// found in one of the page scripts.
func captionTracks(page []byte) ([]captionTrack, error) {
	const marker = `"captionTracks":`
	script := extract.ScriptContaining(page, marker)
	if script == "" {
		// Some pages inline the player response outside a parsed script node.
		script = string(page)
	}
	i := strings.Index(script, marker)
	if i < 0 {
		return nil, errNoCaptions
	}

	var tracks []captionTrack
	dec := json.NewDecoder(strings.NewReader(script[i+len(marker):]))
	if err := dec.Decode(&tracks); err != nil {
		return nil, fmt.Errorf("decode caption tracks: %w", err)
	}
	var usable []captionTrack
	for _, t := range tracks {
		if t.BaseURL != "" {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return nil, errNoCaptions
	}
	return usable, nil
}

// preferTrack picks a manual English track, then any English track, then the first.
func preferTrack(tracks []captionTrack) captionTrack {
	var english *captionTrack
	for i := range tracks {
		t := &tracks[i]
		if !strings.HasPrefix(t.LanguageCode, "en") {
			continue
		}
		if t.Kind != "asr" {
			return *t
		}
		if english == nil {
			english = t
		}
	}
	if english != nil {
		return *english
	}
	return tracks[0]
}

// panoptoID returns the session id and host of a Panopto viewer or embed URL.
func panoptoID(raw string) (id, host string) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !strings.Contains(strings.ToLower(u.Host), "panopto") {
		return "", ""
	}
	q := u.Query()
	for _, key := range []string{"id", "deliveryId", "sessionId"} {
		if v := q.Get(key); v != "" {
			return v, u.Host
		}
	}
	return "", ""
}

type panoptoDelivery struct {
	Delivery struct {
		SessionName string `json:"SessionName"`
		Captions    []struct {
			URL      string `json:"Url"`
			Language string `json:"Language"`
		} `json:"Captions"`
	} `json:"Delivery"`
}

// panoptoTranscript asks the delivery-info endpoint for caption tracks and
// flattens the first one.
func (n *Normalizer) panoptoTranscript(ctx context.Context, id, host string) string {
	info := fmt.Sprintf("https://%s/Panopto/Pages/Viewer/DeliveryInfo.aspx?deliveryId=%s&responseType=json",
		host, url.QueryEscape(id))

	body, err := n.f.GetRaw(ctx, info)
	if err != nil {
		n.logger.Debug("content: panopto delivery info", "id", id, "error", err)
		return "[Panopto video - could not extract transcript]"
	}
	var d panoptoDelivery
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&d); err != nil {
		n.logger.Debug("content: panopto delivery decode", "id", id, "error", err)
		return "[Panopto video - could not extract transcript]"
	}

	title := d.Delivery.SessionName
	if title == "" {
		title = id
	}
	for _, c := range d.Delivery.Captions {
		if c.URL == "" {
			continue
		}
		raw, err := n.f.GetRaw(ctx, c.URL)
		if err != nil {
			n.logger.Debug("content: panopto captions", "id", id, "error", err)
			break
		}
		if text := extract.ParseCaptions(string(raw)); text != "" {
			return text
		}
	}
	return fmt.Sprintf("[Panopto Video: %s]\n[Captions not available or require authentication]", title)
}
