package message

// Message types
const (
	TypeIncoming = "incoming"
	TypeOutgoing = "outgoing"
	TypeActivity = "activity"
)

// Delivery statuses
const (
	StatusInProgress = "in_progress"
	StatusSent       = "sent"
	StatusDelivered  = "delivered"
	StatusRead       = "read"
	StatusFailed     = "failed"
)

// Sender kinds for the polymorphic sender reference.
const (
	SenderContact = "contact"
	SenderAgent   = "agent"
)

// Internal attachment file types.
const (
	FileTypeImage        = "image"
	FileTypeAudio        = "audio"
	FileTypeVideo        = "video"
	FileTypeFile         = "file"
	FileTypeLocation     = "location"
	FileTypeFallback     = "fallback"
	FileTypeShare        = "share"
	FileTypeStoryMention = "story_mention"
	FileTypeContactCard  = "contact_card"
	FileTypeReel         = "reel"
)

// Message content types
const (
	ContentTypeText     = "text"
	ContentTypeImage    = "image"
	ContentTypeVideo    = "video"
	ContentTypeAudio    = "audio"
	ContentTypeFile     = "file"
	ContentTypeLocation = "location"
)

var platformFileTypes = map[string]string{
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

// FileTypeFromPlatform maps a platform attachment type onto the internal
// file-type enum. Unmapped types degrade to a generic file.
func FileTypeFromPlatform(platformType string) string {
	if ft, ok := platformFileTypes[platformType]; ok {
		return ft
	}
	return FileTypeFile
}

var fileContentTypes = map[string]string{
	FileTypeImage:    ContentTypeImage,
	FileTypeVideo:    ContentTypeVideo,
	FileTypeAudio:    ContentTypeAudio,
	FileTypeFile:     ContentTypeFile,
	FileTypeLocation: ContentTypeLocation,
}

// ContentTypeForFileType infers a message content type from its leading
// attachment when the message carries no text.
func ContentTypeForFileType(fileType string) string {
	if ct, ok := fileContentTypes[fileType]; ok {
		return ct
	}
	return ContentTypeFile
}
