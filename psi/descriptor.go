package psi

// Descriptor is a single TLV descriptor: a tag, length, and the
// tag-specific data that follows — a zero-copy view into the
// enclosing section.
type Descriptor struct {
	Tag  uint8
	Data []byte
}

// DescriptorBlock is a sequence of back-to-back descriptors, a raw
// byte-slice view with no allocation on construction.
type DescriptorBlock []byte

// ReadDescriptorBlockWithLen reads exactly n bytes worth of
// descriptors from b, returning the block and the remaining bytes of
// b after it. For tables that carry the block's length in a separate
// field.
func ReadDescriptorBlockWithLen(b []byte, n int) (DescriptorBlock, []byte, bool) {
	if n < 0 || len(b) < n {
		return nil, nil, false
	}
	return DescriptorBlock(b[:n]), b[n:], true
}

// ReadDescriptorBlock reads a 2-byte reserved+length-prefixed
// descriptor block (the common PMT/NIT program_info_length /
// ES_info_length shape: top 4 bits reserved, bottom 12 bits length)
// from the front of b, returning the block and the remainder of b.
func ReadDescriptorBlock(b []byte) (DescriptorBlock, []byte, bool) {
	if len(b) < 2 {
		return nil, nil, false
	}
	n := int(uint16(b[0]&0x0F)<<8 | uint16(b[1]))
	rest := b[2:]
	if len(rest) < n {
		return nil, nil, false
	}
	return DescriptorBlock(rest[:n]), rest[n:], true
}

// Each calls fn for every well-formed descriptor in the block, in
// order, stopping early if a malformed TLV is encountered.
func (d DescriptorBlock) Each(fn func(Descriptor)) {
	b := []byte(d)
	for len(b) >= 2 {
		tag := b[0]
		n := int(b[1])
		if len(b) < 2+n {
			return
		}
		fn(Descriptor{Tag: tag, Data: b[2 : 2+n]})
		b = b[2+n:]
	}
}

// Get returns the first descriptor in the block with the given tag.
func (d DescriptorBlock) Get(tag uint8) (Descriptor, bool) {
	var found Descriptor
	var ok bool
	d.Each(func(desc Descriptor) {
		if ok || desc.Tag != tag {
			return
		}
		found, ok = desc, true
	})
	return found, ok
}

// GetAll returns every descriptor in the block with the given tag.
func (d DescriptorBlock) GetAll(tag uint8) []Descriptor {
	var out []Descriptor
	d.Each(func(desc Descriptor) {
		if desc.Tag == tag {
			out = append(out, desc)
		}
	})
	return out
}

// Descriptor tag constants used by the table/sorter decoders.
const (
	TagServiceDescriptor              uint8 = 0x48
	TagShortEventDescriptor           uint8 = 0x4D
	TagExtendedEventDescriptor        uint8 = 0x4E
	TagStreamIdentifierDescriptor     uint8 = 0x52
	TagVideoDecodeControlDescriptor   uint8 = 0xC8
	TagCAIdentifierDescriptor         uint8 = 0x53
)

// ServiceDescriptor names a service (provider + service name), used
// by SDT.
type ServiceDescriptor struct {
	ServiceType         uint8
	ServiceProviderName string
	ServiceName         string
}

// DecodeServiceDescriptor decodes d.Data as a ServiceDescriptor.
func DecodeServiceDescriptor(d Descriptor) (ServiceDescriptor, bool) {
	b := d.Data
	if len(b) < 2 {
		return ServiceDescriptor{}, false
	}
	st := b[0]
	pn := int(b[1])
	if len(b) < 2+pn+1 {
		return ServiceDescriptor{}, false
	}
	provider := string(b[2 : 2+pn])
	sn := int(b[2+pn])
	if len(b) < 2+pn+1+sn {
		return ServiceDescriptor{}, false
	}
	name := string(b[2+pn+1 : 2+pn+1+sn])
	return ServiceDescriptor{ServiceType: st, ServiceProviderName: provider, ServiceName: name}, true
}

// ShortEventDescriptor carries an event's title and short summary.
type ShortEventDescriptor struct {
	LanguageCode string
	EventName    string
	Text         string
}

// DecodeShortEventDescriptor decodes d.Data as a ShortEventDescriptor.
func DecodeShortEventDescriptor(d Descriptor) (ShortEventDescriptor, bool) {
	b := d.Data
	if len(b) < 4 {
		return ShortEventDescriptor{}, false
	}
	lang := string(b[0:3])
	nameLen := int(b[3])
	if len(b) < 4+nameLen+1 {
		return ShortEventDescriptor{}, false
	}
	name := string(b[4 : 4+nameLen])
	textLen := int(b[4+nameLen])
	if len(b) < 4+nameLen+1+textLen {
		return ShortEventDescriptor{}, false
	}
	text := string(b[4+nameLen+1 : 4+nameLen+1+textLen])
	return ShortEventDescriptor{LanguageCode: lang, EventName: name, Text: text}, true
}

// ExtendedEventItem is one (item_description, item) pair from an
// ExtendedEventDescriptor.
type ExtendedEventItem struct {
	Item        string
	Description string
}

// ExtendedEventDescriptor carries extended event text split across
// possibly several descriptors (descriptor_number/last_descriptor_number).
type ExtendedEventDescriptor struct {
	DescriptorNumber     uint8
	LastDescriptorNumber uint8
	LanguageCode         string
	Items                []ExtendedEventItem
	Text                 string
}

// DecodeExtendedEventDescriptor decodes d.Data as an
// ExtendedEventDescriptor.
func DecodeExtendedEventDescriptor(d Descriptor) (ExtendedEventDescriptor, bool) {
	b := d.Data
	if len(b) < 5 {
		return ExtendedEventDescriptor{}, false
	}
	descNum := (b[0] & 0xF0) >> 4
	lastNum := b[0] & 0x0F
	lang := string(b[1:4])
	itemsLen := int(b[4])
	if len(b) < 5+itemsLen {
		return ExtendedEventDescriptor{}, false
	}
	items := b[5 : 5+itemsLen]
	var out []ExtendedEventItem
	for len(items) >= 1 {
		descLen := int(items[0])
		if len(items) < 1+descLen+1 {
			break
		}
		itemDesc := string(items[1 : 1+descLen])
		items = items[1+descLen:]
		itemLen := int(items[0])
		if len(items) < 1+itemLen {
			break
		}
		itemText := string(items[1 : 1+itemLen])
		items = items[1+itemLen:]
		out = append(out, ExtendedEventItem{Item: itemText, Description: itemDesc})
	}
	rest := b[5+itemsLen:]
	if len(rest) < 1 {
		return ExtendedEventDescriptor{}, false
	}
	textLen := int(rest[0])
	if len(rest) < 1+textLen {
		return ExtendedEventDescriptor{}, false
	}
	text := string(rest[1 : 1+textLen])
	return ExtendedEventDescriptor{
		DescriptorNumber: descNum, LastDescriptorNumber: lastNum,
		LanguageCode: lang, Items: out, Text: text,
	}, true
}

// StreamIdentifierDescriptor carries an elementary stream's
// component_tag, a stable identifier that survives PID changes.
type StreamIdentifierDescriptor struct {
	ComponentTag uint8
}

func DecodeStreamIdentifierDescriptor(d Descriptor) (StreamIdentifierDescriptor, bool) {
	if len(d.Data) < 1 {
		return StreamIdentifierDescriptor{}, false
	}
	return StreamIdentifierDescriptor{ComponentTag: d.Data[0]}, true
}

// VideoDecodeControlDescriptor carries the video encode format used
// by a PMT video stream entry.
type VideoDecodeControlDescriptor struct {
	VideoEncodeFormat uint8 // top 4 bits of the first data byte
}

func DecodeVideoDecodeControlDescriptor(d Descriptor) (VideoDecodeControlDescriptor, bool) {
	if len(d.Data) < 1 {
		return VideoDecodeControlDescriptor{}, false
	}
	return VideoDecodeControlDescriptor{VideoEncodeFormat: (d.Data[0] & 0xF0) >> 4}, true
}
