// Package hls edits the text playlists the resolution worker writes for a
// video so that uploaded subtitle tracks are advertised to players.
package hls

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

const (
	// MasterPlaylist is the object name of a video's master playlist, relative to <videoID>/.
	MasterPlaylist = "master.m3u8"

	// SubtitleDir holds every subtitle object of a video, relative to <videoID>/.
	SubtitleDir = "subtitles"

	// PlaylistContentType is served for every .m3u8 object.
	PlaylistContentType = "application/vnd.apple.mpegurl"

	// SubtitleContentType is served for every .vtt object.
	SubtitleContentType = "text/vtt"

	subtitleMediaPrefix = "#EXT-X-MEDIA:TYPE=SUBTITLES"
	streamInfPrefix     = "#EXT-X-STREAM-INF"
	subtitleFilePrefix  = "subs_"
)

var (
	languagePattern = regexp.MustCompile(`^[a-zA-Z]+(-[a-zA-Z]+)?$`)
	lineBreak       = regexp.MustCompile(`\r?\n`)
)

// ValidLanguage reports whether s is a plain language tag such as "en" or "pt-BR".
func ValidLanguage(s string) bool {
	return languagePattern.MatchString(s)
}

// SubtitleID names the track for a short language code, e.g. "subs_en".
func SubtitleID(short string) string {
	return subtitleFilePrefix + short
}

// SubtitleFile is the WebVTT object name for a short language code.
func SubtitleFile(short string) string {
	return SubtitleID(short) + ".vtt"
}

// SubtitlePlaylistFile is the one-segment playlist object name for a short language code.
func SubtitlePlaylistFile(short string) string {
	return SubtitleID(short) + ".m3u8"
}

// MasterKey is the object key of a video's master playlist.
func MasterKey(videoID string) string {
	return path.Join(videoID, MasterPlaylist)
}

// SubtitlePrefix is the key prefix, with trailing slash, of a video's subtitle objects.
func SubtitlePrefix(videoID string) string {
	return path.Join(videoID, SubtitleDir) + "/"
}

// SubtitleKey is the object key of a file inside a video's subtitle directory.
func SubtitleKey(videoID, file string) string {
	return SubtitlePrefix(videoID) + file
}

// SubtitlePlaylist renders a playlist with a single segment pointing at the
// WebVTT file, long enough to cover any video.
func SubtitlePlaylist(vttFile string) string {
	return "#EXTM3U\n#EXT-X-VERSION:3\n#EXTINF:9999999,\n" + vttFile + "\n#EXT-X-ENDLIST"
}

// MediaLine renders the master playlist entry for a subtitle track.
func MediaLine(language, short string) string {
	return fmt.Sprintf(
		`%s,GROUP-ID="subs",NAME="%s",DEFAULT="NO",AUTOSELECT="NO",LANGUAGE="%s",URI="%s/%s"`,
		subtitleMediaPrefix, language, short, SubtitleDir, SubtitlePlaylistFile(short),
	)
}

func isMediaLineFor(line, short string) bool {
	return strings.HasPrefix(line, subtitleMediaPrefix) &&
		strings.Contains(line, fmt.Sprintf(`LANGUAGE="%s"`, short))
}

// UpsertSubtitleMedia replaces the subtitle entry for short in a master
// playlist, or inserts it before the first variant stream when absent.
// Lines are rejoined with "\n".
func UpsertSubtitleMedia(master, language, short string) string {
	entry := MediaLine(language, short)
	lines := lineBreak.Split(master, -1)

	found := false
	for i, line := range lines {
		if isMediaLineFor(line, short) {
			lines[i] = entry
			found = true
		}
	}

	if !found {
		at := len(lines)
		for i, line := range lines {
			if strings.HasPrefix(line, streamInfPrefix) {
				at = i
				break
			}
		}
		lines = append(lines[:at], append([]string{entry}, lines[at:]...)...)
	}

	return strings.Join(lines, "\n")
}

// RemoveSubtitleMedia drops every subtitle entry for short from a master playlist.
func RemoveSubtitleMedia(master, short string) string {
	lines := lineBreak.Split(master, -1)
	kept := lines[:0]
	for _, line := range lines {
		if !isMediaLineFor(line, short) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// LanguageOf extracts the short language code from a subtitle object key or
// file name such as "<id>/subtitles/subs_en.vtt". ok is false for other names.
func LanguageOf(key string) (short string, ok bool) {
	base := path.Base(key)
	if !strings.HasPrefix(base, subtitleFilePrefix) {
		return "", false
	}
	name := strings.TrimPrefix(base, subtitleFilePrefix)
	if dot := strings.IndexByte(name, '.'); dot >= 0 {
		name = name[:dot]
	}
	if name == "" {
		return "", false
	}
	return name, true
}

// IsSubtitleTrack reports whether key names a WebVTT track.
func IsSubtitleTrack(key string) bool {
	_, ok := LanguageOf(key)
	return ok && strings.HasSuffix(key, ".vtt")
}
