package app

// Gallery reducers. They never mutate their input and never touch I/O.

// Prepend puts image at the head of images.
func Prepend(images []GeneratedImage, image GeneratedImage) []GeneratedImage {
	out := make([]GeneratedImage, 0, len(images)+1)
	out = append(out, image)
	return append(out, images...)
}

// ReplaceOrPrepend swaps the entry with id targetID for image, keeping its position.
// When no entry matches, image is prepended.
func ReplaceOrPrepend(images []GeneratedImage, targetID string, image GeneratedImage) []GeneratedImage {
	idx := indexOf(images, targetID)
	if idx < 0 {
		return Prepend(images, image)
	}
	out := append([]GeneratedImage(nil), images...)
	out[idx] = image
	return out
}

// RemoveByID drops every entry with the given id.
func RemoveByID(images []GeneratedImage, id string) []GeneratedImage {
	out := make([]GeneratedImage, 0, len(images))
	for _, img := range images {
		if img.ID != id {
			out = append(out, img)
		}
	}
	return out
}

// RenameByID sets the name of the matching entry. The bool reports whether one matched.
func RenameByID(images []GeneratedImage, id, name string) ([]GeneratedImage, bool) {
	idx := indexOf(images, id)
	if idx < 0 {
		return images, false
	}
	out := append([]GeneratedImage(nil), images...)
	out[idx].Name = name
	return out, true
}

// Truncate keeps at most limit entries from the head.
func Truncate(images []GeneratedImage, limit int) []GeneratedImage {
	if limit < 0 || len(images) <= limit {
		return append([]GeneratedImage(nil), images...)
	}
	return append([]GeneratedImage(nil), images[:limit]...)
}

// FindByID returns the entry with the given id.
func FindByID(images []GeneratedImage, id string) (GeneratedImage, bool) {
	idx := indexOf(images, id)
	if idx < 0 {
		return GeneratedImage{}, false
	}
	return images[idx], true
}

func indexOf(images []GeneratedImage, id string) int {
	for i := range images {
		if images[i].ID == id {
			return i
		}
	}
	return -1
}
