package azure

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// GeneralAttachment is the attachment type used for all evidence.
const GeneralAttachment = "GeneralAttachment"

// Attachment is one evidence item uploaded against a test result.
type Attachment struct {
	Stream         string `json:"stream"`
	FileName       string `json:"fileName"`
	Comment        string `json:"comment"`
	AttachmentType string `json:"attachmentType"`
}

// now is replaced in tests.
var now = time.Now

// NewAttachment encodes content and names it
// Evidence_<YYYYMMDD>_<HHMMSS>_<8 hex>.<ext>.
func NewAttachment(ext string, content []byte, comment string) Attachment {
	return Attachment{
		Stream:         base64.StdEncoding.EncodeToString(content),
		FileName:       evidenceName(now(), ext),
		Comment:        comment,
		AttachmentType: GeneralAttachment,
	}
}

// NewFileAttachment encodes content under the original file name.
func NewFileAttachment(name string, content []byte, comment string) Attachment {
	return Attachment{
		Stream:         base64.StdEncoding.EncodeToString(content),
		FileName:       name,
		Comment:        comment,
		AttachmentType: GeneralAttachment,
	}
}

func evidenceName(t time.Time, ext string) string {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		copy(suffix, fmt.Sprintf("%04d", t.Nanosecond()%10000))
	}
	return fmt.Sprintf("Evidence_%s_%s_%s.%s",
		t.Format("20060102"), t.Format("150405"),
		hex.EncodeToString(suffix), ext)
}

// Buffer accumulates attachments until they are published. It is
// safe for concurrent use.
type Buffer struct {
	mu    sync.Mutex
	items []Attachment
}

// NewBuffer returns an empty per-test buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

var shared = NewBuffer()

// SharedBuffer returns the process-wide buffer used in batch mode.
func SharedBuffer() *Buffer {
	return shared
}

// Add appends attachments to the buffer.
func (b *Buffer) Add(items ...Attachment) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, items...)
}

// Items returns a copy of the buffered attachments.
func (b *Buffer) Items() []Attachment {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Attachment, len(b.items))
	copy(out, b.items)
	return out
}

// Len returns the number of buffered attachments.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Reset drops every buffered attachment.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = nil
}
