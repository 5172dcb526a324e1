package session

import (
	"github.com/cjeanneret/remocam/internal/hw/sdk"
)

// live returns the handle of the open session.
func (m *Manager) live() (sdk.Handle, error) {
	h := m.Handle()
	if h == 0 || m.State() == Disconnected {
		return 0, ErrNotConnected
	}
	return h, nil
}

// AllProperties requests a full property dump.
func (m *Manager) AllProperties() ([]sdk.RawProperty, error) {
	h, err := m.live()
	if err != nil {
		return nil, err
	}
	m.log.Trace("transport GetDeviceProperties")
	return m.tr.GetDeviceProperties(h)
}

// SelectedProperties requests the listed property codes only.
func (m *Manager) SelectedProperties(codes []uint32) ([]sdk.RawProperty, error) {
	h, err := m.live()
	if err != nil {
		return nil, err
	}
	m.log.Trace("transport GetSelectDeviceProperties codes=%v", codes)
	return m.tr.GetSelectDeviceProperties(h, codes)
}

// SetProperty writes one property value.
func (m *Manager) SetProperty(p sdk.RawProperty) error {
	h, err := m.live()
	if err != nil {
		return err
	}
	m.log.Trace("transport SetDeviceProperty code=0x%04X value=0x%X type=0x%X", p.Code, p.Current, uint32(p.ValueType))
	return m.tr.SetDeviceProperty(h, p)
}

// SendCommand issues a one-shot command.
func (m *Manager) SendCommand(id sdk.CommandID, param sdk.CommandParam) error {
	h, err := m.live()
	if err != nil {
		return err
	}
	m.log.Trace("transport SendCommand %s %s", id, param)
	return m.tr.SendCommand(h, id, param)
}

// SetDeviceSetting changes a host-side device setting.
func (m *Manager) SetDeviceSetting(key sdk.SettingKey, value uint32) error {
	h, err := m.live()
	if err != nil {
		return err
	}
	return m.tr.SetDeviceSetting(h, key, value)
}

// LiveViewImage fetches the latest live view frame.
func (m *Manager) LiveViewImage() ([]byte, error) {
	h, err := m.live()
	if err != nil {
		return nil, err
	}
	return m.tr.GetLiveViewImage(h)
}

// LiveViewProperties fetches the live view overlay properties.
func (m *Manager) LiveViewProperties() ([]sdk.RawProperty, error) {
	h, err := m.live()
	if err != nil {
		return nil, err
	}
	return m.tr.GetLiveViewProperties(h)
}

// DateFolders lists the dated folders on the recording media.
func (m *Manager) DateFolders() ([]sdk.DateFolder, error) {
	h, err := m.live()
	if err != nil {
		return nil, err
	}
	return m.tr.GetDateFolderList(h)
}

// ContentHandles lists the content items of one folder.
func (m *Manager) ContentHandles(folder sdk.FolderHandle) ([]sdk.ContentHandle, error) {
	h, err := m.live()
	if err != nil {
		return nil, err
	}
	return m.tr.GetContentsHandleList(h, folder)
}

// ContentDetail returns the detail record of one content item.
func (m *Manager) ContentDetail(c sdk.ContentHandle) (sdk.ContentInfo, error) {
	h, err := m.live()
	if err != nil {
		return sdk.ContentInfo{}, err
	}
	return m.tr.GetContentsDetailInfo(h, c)
}

// PullContent starts an asynchronous pull into the save directory.
// Completion is reported through the download callback.
func (m *Manager) PullContent(c sdk.ContentHandle, size sdk.PullSize) error {
	h, err := m.live()
	if err != nil {
		return err
	}
	return m.tr.PullContentsFile(h, c, size)
}

// Thumbnail fetches the thumbnail of one content item.
func (m *Manager) Thumbnail(c sdk.ContentHandle) ([]byte, error) {
	h, err := m.live()
	if err != nil {
		return nil, err
	}
	return m.tr.GetContentsThumbnailImage(h, c)
}
