package local

import "regexp"

var (
	// idTokenRe matches a bracketed video or channel id token, with the
	// whitespace in front of it.
	idTokenRe = regexp.MustCompile(`\s*\[(?:youtube-)?(?:[A-Za-z0-9_-]{11}|UC[A-Za-z0-9_-]{22})\]`)

	// uploadDatePrefixRe matches the yyyyMMdd prefix yt-dlp output templates
	// commonly put in front of titles: "20220131 - Title".
	uploadDatePrefixRe = regexp.MustCompile(`^(?:19|20)\d{6}\s*[-_.]\s*`)

	// emptyBracketsRe matches empty bracket pairs left behind after cleaning.
	emptyBracketsRe = regexp.MustCompile(`\s*[\(\[\{<]\s*[\)\]\}>]`)
)
