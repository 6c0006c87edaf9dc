package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileTypeFromPlatform(t *testing.T) {
	cases := map[string]string{
		"image":         FileTypeImage,
		"audio":         FileTypeAudio,
		"video":         FileTypeVideo,
		"file":          FileTypeFile,
		"location":      FileTypeLocation,
		"fallback":      FileTypeFallback,
		"share":         FileTypeShare,
		"story_mention": FileTypeStoryMention,
		"contact":       FileTypeContactCard,
		"ig_reel":       FileTypeReel,
	}
	for platformType, want := range cases {
		assert.Equal(t, want, FileTypeFromPlatform(platformType), platformType)
	}

	// Types the platform invents later degrade to a generic file instead
	// of failing the event.
	assert.Equal(t, FileTypeFile, FileTypeFromPlatform("hologram"))
	assert.Equal(t, FileTypeFile, FileTypeFromPlatform(""))
}

func TestContentTypeForFileType(t *testing.T) {
	assert.Equal(t, ContentTypeImage, ContentTypeForFileType(FileTypeImage))
	assert.Equal(t, ContentTypeVideo, ContentTypeForFileType(FileTypeVideo))
	assert.Equal(t, ContentTypeAudio, ContentTypeForFileType(FileTypeAudio))
	assert.Equal(t, ContentTypeLocation, ContentTypeForFileType(FileTypeLocation))

	// Share, story mentions and the other non-media types all read as a
	// generic file message.
	assert.Equal(t, ContentTypeFile, ContentTypeForFileType(FileTypeShare))
	assert.Equal(t, ContentTypeFile, ContentTypeForFileType(FileTypeStoryMention))
}
