// Package transcoder shells out to ffmpeg/ffprobe to probe video
// sources, resolve output geometry, encode derivatives in the four
// supported containers and extract poster frames.
package transcoder
