package psi

import "github.com/ausocean/isdbt/pid"

// PatProgram is one program_number -> PID mapping carried by a PAT.
// program_number 0 is reserved for the NIT PID and is never
// surfaced here.
type PatProgram struct {
	ProgramNumber uint16
	ProgramMapPID pid.PID
}

// Pat is the Program Association Table.
type Pat struct {
	TransportStreamID uint16
	NetworkPID        pid.PID
	Programs          []PatProgram
}

const TableIDPat uint8 = 0x00

// ReadPat decodes sec as a PAT, or returns ok == false if sec is not
// a well-formed PAT section.
func ReadPat(sec Section) (Pat, bool) {
	if sec.TableID != TableIDPat || sec.Syntax == nil {
		return Pat{}, false
	}
	var pat Pat
	pat.TransportStreamID = sec.Syntax.TableIDExtension
	pat.NetworkPID = pid.Null

	data := sec.Data
	for len(data) >= 4 {
		programNumber := uint16(data[0])<<8 | uint16(data[1])
		p := pid.Read(data[2:4])
		if programNumber == 0 {
			pat.NetworkPID = p
		} else {
			pat.Programs = append(pat.Programs, PatProgram{ProgramNumber: programNumber, ProgramMapPID: p})
		}
		data = data[4:]
	}
	return pat, true
}

// Cat is the Conditional Access Table; ECM/EMM PIDs are surfaced via
// its CA descriptors but never decrypted (non-goal).
type Cat struct {
	Descriptors DescriptorBlock
}

const TableIDCat uint8 = 0x01

func ReadCat(sec Section) (Cat, bool) {
	if sec.TableID != TableIDCat {
		return Cat{}, false
	}
	return Cat{Descriptors: DescriptorBlock(sec.Data)}, true
}

// PmtStream is one elementary stream entry in a PMT.
type PmtStream struct {
	StreamType    StreamType
	ElementaryPID pid.PID
	Descriptors   DescriptorBlock
}

// Pmt is the Program Map Table for one service.
type Pmt struct {
	ProgramNumber uint16
	PcrPID        pid.PID
	Descriptors   DescriptorBlock
	Streams       []PmtStream
}

const TableIDPmt uint8 = 0x02

func ReadPmt(sec Section) (Pmt, bool) {
	if sec.TableID != TableIDPmt || sec.Syntax == nil {
		return Pmt{}, false
	}
	data := sec.Data
	if len(data) < 4 {
		return Pmt{}, false
	}
	pcrPID := pid.Read(data[0:2])
	descriptors, rest, ok := ReadDescriptorBlock(data[2:])
	if !ok {
		return Pmt{}, false
	}

	var streams []PmtStream
	for len(rest) > 0 {
		if len(rest) < 5 {
			return Pmt{}, false
		}
		st := StreamType(rest[0])
		esPID := pid.Read(rest[1:3])
		descs, r2, ok := ReadDescriptorBlock(rest[3:])
		if !ok {
			return Pmt{}, false
		}
		rest = r2
		streams = append(streams, PmtStream{StreamType: st, ElementaryPID: esPID, Descriptors: descs})
	}

	return Pmt{
		ProgramNumber: sec.Syntax.TableIDExtension,
		PcrPID:        pcrPID,
		Descriptors:   descriptors,
		Streams:       streams,
	}, true
}

// TransportStreamConfig describes one transport stream entry in a NIT.
type TransportStreamConfig struct {
	TransportStreamID   uint16
	OriginalNetworkID   uint16
	TransportDescriptors DescriptorBlock
}

// Nit is the Network Information Table (Actual or Other, by table_id).
type Nit struct {
	NetworkID           uint16
	NetworkDescriptors  DescriptorBlock
	TransportStreams    []TransportStreamConfig
}

const (
	TableIDNitActual uint8 = 0x40
	TableIDNitOther  uint8 = 0x41
)

func ReadNit(sec Section) (Nit, bool) {
	if (sec.TableID != TableIDNitActual && sec.TableID != TableIDNitOther) || sec.Syntax == nil {
		return Nit{}, false
	}
	data := sec.Data
	netDescs, rest, ok := ReadDescriptorBlock(data)
	if !ok {
		return Nit{}, false
	}
	if len(rest) < 2 {
		return Nit{}, false
	}
	loopLen := int(uint16(rest[0]&0x0F)<<8 | uint16(rest[1]))
	rest = rest[2:]
	if len(rest) < loopLen {
		return Nit{}, false
	}
	loop := rest[:loopLen]

	var tsConfigs []TransportStreamConfig
	for len(loop) > 0 {
		if len(loop) < 6 {
			return Nit{}, false
		}
		tsid := uint16(loop[0])<<8 | uint16(loop[1])
		onid := uint16(loop[2])<<8 | uint16(loop[3])
		descs, r2, ok := ReadDescriptorBlock(loop[4:])
		if !ok {
			return Nit{}, false
		}
		loop = r2
		tsConfigs = append(tsConfigs, TransportStreamConfig{
			TransportStreamID: tsid, OriginalNetworkID: onid, TransportDescriptors: descs,
		})
	}

	return Nit{
		NetworkID:          sec.Syntax.TableIDExtension,
		NetworkDescriptors: netDescs,
		TransportStreams:   tsConfigs,
	}, true
}

// SdtService is one service entry in an SDT section.
type SdtService struct {
	ServiceID           uint16
	EITScheduleFlag     bool
	EITPresentFollowing bool
	RunningStatus       uint8
	FreeCAMode          bool
	Descriptors         DescriptorBlock
}

// Sdt is the Service Description Table (Actual or Other, by table_id).
type Sdt struct {
	TransportStreamID uint16
	OriginalNetworkID uint16
	Services          []SdtService
}

const (
	TableIDSdtActual uint8 = 0x42
	TableIDSdtOther  uint8 = 0x46
)

func ReadSdt(sec Section) (Sdt, bool) {
	if (sec.TableID != TableIDSdtActual && sec.TableID != TableIDSdtOther) || sec.Syntax == nil {
		return Sdt{}, false
	}
	data := sec.Data
	if len(data) < 3 {
		return Sdt{}, false
	}
	onid := uint16(data[0])<<8 | uint16(data[1])
	data = data[3:] // skip reserved_future_use byte

	var services []SdtService
	for len(data) > 0 {
		if len(data) < 5 {
			return Sdt{}, false
		}
		sid := uint16(data[0])<<8 | uint16(data[1])
		eitSched := data[2]&0x02 != 0
		eitPF := data[2]&0x01 != 0
		runningStatus := (data[3] & 0xE0) >> 5
		freeCA := data[3]&0x10 != 0
		descs, rest, ok := ReadDescriptorBlock(data[3:])
		if !ok {
			return Sdt{}, false
		}
		data = rest
		services = append(services, SdtService{
			ServiceID: sid, EITScheduleFlag: eitSched, EITPresentFollowing: eitPF,
			RunningStatus: runningStatus, FreeCAMode: freeCA, Descriptors: descs,
		})
	}

	return Sdt{TransportStreamID: sec.Syntax.TableIDExtension, OriginalNetworkID: onid, Services: services}, true
}

// EitEvent is one event entry in an EIT section.
type EitEvent struct {
	EventID     uint16
	StartTime   [5]byte // raw MJD+BCD, decode via pid.TimeFromMJDBCD
	Duration    [3]byte // BCD HH:MM:SS
	RunningStatus uint8
	FreeCAMode  bool
	Descriptors DescriptorBlock
}

// Eit is an Event Information Table section (present/following or
// schedule, actual or other, distinguished by table_id).
type Eit struct {
	ServiceID         uint16
	TransportStreamID uint16
	OriginalNetworkID uint16
	SegmentLastSectionNumber uint8
	LastTableID       uint8
	Events            []EitEvent
}

const (
	TableIDEitActualPF   uint8 = 0x4E
	TableIDEitOtherPF    uint8 = 0x4F
	// 0x50-0x5F: Actual schedule; 0x60-0x6F: Other schedule.
)

// IsEitScheduleActual reports whether tableID is an Actual-stream
// schedule EIT (0x50-0x5F).
func IsEitScheduleActual(tableID uint8) bool { return tableID >= 0x50 && tableID <= 0x5F }

// IsEitScheduleOther reports whether tableID is an Other-stream
// schedule EIT (0x60-0x6F).
func IsEitScheduleOther(tableID uint8) bool { return tableID >= 0x60 && tableID <= 0x6F }

// IsEit reports whether tableID is any recognized EIT variant.
func IsEit(tableID uint8) bool {
	return tableID == TableIDEitActualPF || tableID == TableIDEitOtherPF ||
		IsEitScheduleActual(tableID) || IsEitScheduleOther(tableID)
}

func ReadEit(sec Section) (Eit, bool) {
	if !IsEit(sec.TableID) || sec.Syntax == nil {
		return Eit{}, false
	}
	data := sec.Data
	if len(data) < 6 {
		return Eit{}, false
	}
	tsid := uint16(data[0])<<8 | uint16(data[1])
	onid := uint16(data[2])<<8 | uint16(data[3])
	segLast := data[4]
	lastTableID := data[5]
	data = data[6:]

	var events []EitEvent
	for len(data) > 0 {
		if len(data) < 12 {
			return Eit{}, false
		}
		var ev EitEvent
		ev.EventID = uint16(data[0])<<8 | uint16(data[1])
		copy(ev.StartTime[:], data[2:7])
		copy(ev.Duration[:], data[7:10])
		ev.RunningStatus = (data[10] & 0xE0) >> 5
		ev.FreeCAMode = data[10]&0x10 != 0
		descs, rest, ok := ReadDescriptorBlock(data[10:])
		if !ok {
			return Eit{}, false
		}
		ev.Descriptors = descs
		data = rest
		events = append(events, ev)
	}

	return Eit{
		ServiceID: sec.Syntax.TableIDExtension, TransportStreamID: tsid, OriginalNetworkID: onid,
		SegmentLastSectionNumber: segLast, LastTableID: lastTableID, Events: events,
	}, true
}
