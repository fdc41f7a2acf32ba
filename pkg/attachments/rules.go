package attachments

import (
	"fmt"
	"strings"

	"ai-assistant-client/pkg/api"
)

type Format struct {
	Mimetype string
	MaxSize  int64
}

// Rules restrict what may be attached. Zero values mean unrestricted.
type Rules struct {
	MaxTotalCount   int
	MaxTotalSize    int64
	AcceptedFormats []Format
}

// AcceptString is the comma separated list of accepted MIME types.
func (r Rules) AcceptString() string {
	types := make([]string, 0, len(r.AcceptedFormats))
	for _, f := range r.AcceptedFormats {
		types = append(types, f.Mimetype)
	}
	return strings.Join(types, ",")
}

// RulesFor derives attachment rules from the server limits. Formats that need
// vision are only accepted when model supports it.
func RulesFor(limits api.FileLimits, model *api.CompletionModel) Rules {
	vision := model != nil && model.Vision

	rules := Rules{MaxTotalCount: limits.MaxInQuestion, MaxTotalSize: limits.MaxTotalSize}
	for _, f := range limits.Formats {
		if f.Vision && !vision {
			continue
		}
		rules.AcceptedFormats = append(rules.AcceptedFormats, Format{Mimetype: f.Mimetype, MaxSize: f.Size})
	}
	return rules
}

// check returns the rejection message for file, or "" when it may be queued.
// stop is set when no further file can pass either.
func (r Rules) check(file LocalFile, count int, totalSize int64) (rejection string, stop bool) {
	if r.MaxTotalCount > 0 && count >= r.MaxTotalCount {
		return fmt.Sprintf("You can only attach a maximum number of %d files at a time.", r.MaxTotalCount), true
	}

	if r.AcceptedFormats != nil {
		// Some types carry a codec or charset after a `;`.
		mtype := strings.TrimSpace(strings.SplitN(file.Mimetype, ";", 2)[0])
		var format *Format
		for i := range r.AcceptedFormats {
			if r.AcceptedFormats[i].Mimetype == mtype {
				format = &r.AcceptedFormats[i]
				break
			}
		}
		if format == nil {
			return fmt.Sprintf("%s: File type %s is not supported for this operation.", file.Name, mtype), false
		}
		if file.Size > format.MaxSize {
			return fmt.Sprintf("%s: File is too large. Maximum size is %d bytes while %s is %d bytes.",
				file.Name, format.MaxSize, file.Name, file.Size), false
		}
	}

	if r.MaxTotalSize > 0 && totalSize+file.Size >= r.MaxTotalSize {
		return fmt.Sprintf("%s: Skipping file. Can only upload a total of %d bytes at a time.", file.Name, r.MaxTotalSize), false
	}
	return "", false
}
