// Package post defines the post and image records shared by sources,
// stores, notifiers and the reconciler.
package post

// Post is a unit of content observed on a source page.
type Post struct {
	ID     string  // stable identifier assigned by the source
	Text   string  // post body, possibly empty
	Images []Image // attached pictures, in display order

	// MessageID identifies the channel message carrying Text. Nil until the
	// text has been sent.
	MessageID *string
}

// Image is one picture attached to a post.
type Image struct {
	URL string

	// MessageID identifies the channel message carrying this image. Nil until sent.
	MessageID *string
}

// Sent reports whether the post text has been relayed.
func (p Post) Sent() bool {
	return p.MessageID != nil
}

// Clone returns a deep copy of p. Message id pointers are not shared.
func (p Post) Clone() Post {
	out := Post{
		ID:        p.ID,
		Text:      p.Text,
		MessageID: cloneString(p.MessageID),
	}
	if p.Images != nil {
		out.Images = make([]Image, len(p.Images))
		for i, img := range p.Images {
			out.Images[i] = Image{URL: img.URL, MessageID: cloneString(img.MessageID)}
		}
	}
	return out
}

// ImageURLs returns the image URLs in order.
func (p Post) ImageURLs() []string {
	urls := make([]string, len(p.Images))
	for i, img := range p.Images {
		urls[i] = img.URL
	}
	return urls
}

// MessageIDs returns every message id assigned to the post: the text
// message first, then one per sent image.
func (p Post) MessageIDs() []string {
	var ids []string
	if p.MessageID != nil {
		ids = append(ids, *p.MessageID)
	}
	for _, img := range p.Images {
		if img.MessageID != nil {
			ids = append(ids, *img.MessageID)
		}
	}
	return ids
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string {
	return &s
}

// Deref returns the value of s, or "" when s is nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
