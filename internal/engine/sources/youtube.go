package sources

// YouTube implementation is split across three files by responsibility:
//   youtube_innertube.go  — Innertube/timedtext types, constants, and the ANDROID /player request
//   youtube_transcript.go — Loader: transcript fetching (watch page scrape + ANDROID player fallback)
//   youtube_search.go     — Discovery: channel uploads via Data API v3 with key fallback
