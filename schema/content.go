package schema

// ContentType identifies the kind of data a ContentPart carries.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
	ContentAudio ContentType = "audio"
	ContentVideo ContentType = "video"
	ContentFile  ContentType = "file"
)

// ContentPart is one piece of a message's multimodal body.
type ContentPart interface {
	PartType() ContentType
}

type TextPart struct {
	Text string
}

func (TextPart) PartType() ContentType { return ContentText }

type ImagePart struct {
	Data     []byte
	MimeType string
	URL      string
}

func (ImagePart) PartType() ContentType { return ContentImage }

type AudioPart struct {
	Data       []byte
	Format     string
	SampleRate int
}

func (AudioPart) PartType() ContentType { return ContentAudio }

type VideoPart struct {
	Data     []byte
	MimeType string
	URL      string
}

func (VideoPart) PartType() ContentType { return ContentVideo }

type FilePart struct {
	Data     []byte
	Name     string
	MimeType string
}

func (FilePart) PartType() ContentType { return ContentFile }
