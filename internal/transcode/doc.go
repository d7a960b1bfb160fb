// Package transcode implements the first pipeline stage: converting source
// recordings to the configured delivery format and probing their duration.
package transcode
