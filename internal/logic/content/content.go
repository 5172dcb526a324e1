// Package content lists and pulls the images stored on the camera media and
// grabs live view frames.
package content

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cjeanneret/remocam/internal/debug"
	"github.com/cjeanneret/remocam/internal/hw/sdk"
	"github.com/cjeanneret/remocam/internal/logic/property"
)

// File names written by Thumbnail and LiveView.
const (
	ThumbnailFile = "Thumbnail.JPG"
	LiveViewFile  = "LiveView000000.JPG"
)

var (
	ErrTransferDisabled = errors.New("content: contents transfer is not enabled on the camera")
	ErrNotStill         = errors.New("content: screennail is only available for still images")
	ErrNoItem           = errors.New("content: no such item")
	ErrNoFrame          = errors.New("content: no live view frame")
)

// Device is the part of the session used to reach stored content.
type Device interface {
	SelectedProperties(codes []uint32) ([]sdk.RawProperty, error)
	DateFolders() ([]sdk.DateFolder, error)
	ContentHandles(folder sdk.FolderHandle) ([]sdk.ContentHandle, error)
	ContentDetail(c sdk.ContentHandle) (sdk.ContentInfo, error)
	PullContent(c sdk.ContentHandle, size sdk.PullSize) error
	Thumbnail(c sdk.ContentHandle) ([]byte, error)
	LiveViewImage() ([]byte, error)
	LiveViewProperties() ([]sdk.RawProperty, error)
}

// Item is one stored content item. Index is its 1-based position in the
// last listing.
type Item struct {
	Index  int
	Handle sdk.ContentHandle
	Folder sdk.FolderHandle
	Name   string
	Files  []sdk.ContentFile
}

// Still reports whether the item is a still image with a screennail.
func (it Item) Still() bool {
	switch strings.ToUpper(path.Ext(it.Name)) {
	case ".JPG", ".ARW", ".HIF":
		return true
	}
	return false
}

// Folder is a dated folder and its items.
type Folder struct {
	sdk.DateFolder
	Items []Item
}

// Name formats the folder date.
func (f Folder) Name() string {
	return fmt.Sprintf("%04d-%02d-%02d", f.Year, f.Month, f.Day)
}

// Browser walks the camera media.
type Browser struct {
	dev Device
	log *debug.Logger

	mu    sync.Mutex
	items []Item
}

// NewBrowser creates a browser on dev.
func NewBrowser(dev Device, log *debug.Logger) *Browser {
	return &Browser{dev: dev, log: log}
}

func (b *Browser) transferEnabled() (bool, error) {
	props, err := b.dev.SelectedProperties([]uint32{uint32(property.ContentsTransferStatus)})
	if err != nil {
		return false, err
	}
	for _, p := range props {
		if property.Code(p.Code) == property.ContentsTransferStatus {
			return p.Current == 1, nil
		}
	}
	return false, nil
}

// List reads the folders and the detail of every item. The camera must be
// in contents transfer with the transfer status ON. The first failing
// detail read ends the listing with an error.
func (b *Browser) List() ([]Folder, error) {
	ok, err := b.transferEnabled()
	if err != nil {
		return nil, fmt.Errorf("read contents transfer status: %w", err)
	}
	if !ok {
		return nil, ErrTransferDisabled
	}

	dates, err := b.dev.DateFolders()
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	b.log.Verbose("%d folder(s)", len(dates))

	var (
		folders []Folder
		items   []Item
	)
	for i, d := range dates {
		handles, err := b.dev.ContentHandles(d.Handle)
		if err != nil {
			return nil, fmt.Errorf("list folder %d: %w", d.Handle, err)
		}
		b.log.Verbose("(%d/%d) %d item(s)", i+1, len(dates), len(handles))

		f := Folder{DateFolder: d}
		for n, h := range handles {
			info, err := b.dev.ContentDetail(h)
			if err != nil {
				return nil, fmt.Errorf("content 0x%08X: %w", h, err)
			}
			it := Item{Index: len(items) + 1, Handle: h, Folder: d.Handle, Files: info.Files}
			if len(info.Files) > 0 {
				it.Name = path.Base(info.Files[0].Path)
			}
			f.Items = append(f.Items, it)
			items = append(items, it)
			if (n+1)%100 == 0 {
				b.log.Verbose("  ... %d/%d", n+1, len(handles))
			}
		}
		folders = append(folders, f)
	}

	b.mu.Lock()
	b.items = items
	b.mu.Unlock()
	return folders, nil
}

// Item returns the item at index in the last listing.
func (b *Browser) Item(index int) (Item, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 1 || index > len(b.items) {
		return Item{}, fmt.Errorf("%w: %d", ErrNoItem, index)
	}
	return b.items[index-1], nil
}

// Pull starts the transfer of the original file. Completion is reported by
// the download callback.
func (b *Browser) Pull(it Item) error {
	b.log.Live("pull %s (0x%08X)", it.Name, it.Handle)
	return b.dev.PullContent(it.Handle, sdk.PullOriginal)
}

// PullScreennail starts the transfer of the 2M screennail of a still.
func (b *Browser) PullScreennail(it Item) error {
	if !it.Still() {
		return fmt.Errorf("%w: %s", ErrNotStill, it.Name)
	}
	b.log.Live("pull screennail %s (0x%08X)", it.Name, it.Handle)
	return b.dev.PullContent(it.Handle, sdk.PullScreennail2M)
}

// Thumbnail fetches the thumbnail of it and writes it to dir/Thumbnail.JPG.
func (b *Browser) Thumbnail(it Item, dir string) (string, error) {
	data, err := b.dev.Thumbnail(it.Handle)
	if err != nil {
		return "", fmt.Errorf("thumbnail 0x%08X: %w", it.Handle, err)
	}
	return save(dir, ThumbnailFile, data)
}

// LiveView grabs the current live view frame and writes it to
// dir/LiveView000000.JPG.
func (b *Browser) LiveView(dir string) (string, error) {
	data, err := b.dev.LiveViewImage()
	switch {
	case errors.Is(err, sdk.WarnFrameNotUpdated), errors.Is(err, sdk.WarnMemoryInsufficient):
		return "", fmt.Errorf("%w: %v", ErrNoFrame, err)
	case err != nil:
		return "", fmt.Errorf("live view: %w", err)
	case len(data) == 0:
		return "", ErrNoFrame
	}
	return save(dir, LiveViewFile, data)
}

// LiveViewOverlay returns the properties drawn over the live view frame,
// such as the focus area and the AF area position.
func (b *Browser) LiveViewOverlay() ([]property.Property, error) {
	raws, err := b.dev.LiveViewProperties()
	if err != nil {
		return nil, fmt.Errorf("live view properties: %w", err)
	}
	return property.Decode(raws)
}

func save(dir, name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("write %s: empty image", name)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return p, nil
}
