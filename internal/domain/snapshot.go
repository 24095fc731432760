package domain

// Snapshot is the observed list state of the whole fleet at collection time.
// It is built once per run and read-only afterwards. A (device, list) pair is
// either present in Lists or recorded in Errors, never both.
type Snapshot struct {
	// Devices preserves inventory order so derived output is deterministic.
	Devices []DeviceID
	Lists   map[DeviceID]map[ListType]EntrySet
	Errors  map[DeviceID]map[ListType]error
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		Lists:  make(map[DeviceID]map[ListType]EntrySet),
		Errors: make(map[DeviceID]map[ListType]error),
	}
}

// AddDevice registers a device in iteration order. Record and RecordError
// imply it, so callers only need this for devices with no results at all.
func (s *Snapshot) AddDevice(dev DeviceID) {
	for _, existing := range s.Devices {
		if existing == dev {
			return
		}
	}
	s.Devices = append(s.Devices, dev)
}

// Record stores a successfully fetched list.
func (s *Snapshot) Record(dev DeviceID, list ListType, set EntrySet) {
	s.AddDevice(dev)
	if s.Lists[dev] == nil {
		s.Lists[dev] = make(map[ListType]EntrySet)
	}
	s.Lists[dev][list] = set
}

// RecordError marks a (device, list) pair as unreachable for this run. The
// pair contributes nothing to the union and receives no diff.
func (s *Snapshot) RecordError(dev DeviceID, list ListType, err error) {
	s.AddDevice(dev)
	if s.Errors[dev] == nil {
		s.Errors[dev] = make(map[ListType]error)
	}
	s.Errors[dev][list] = err
}

// Entries returns the fetched set for the pair, or ok=false if the fetch
// failed or never happened.
func (s *Snapshot) Entries(dev DeviceID, list ListType) (EntrySet, bool) {
	set, found := s.Lists[dev][list]
	return set, found
}

// FetchError returns the recorded collection failure for the pair, if any.
func (s *Snapshot) FetchError(dev DeviceID, list ListType) (error, bool) {
	err, found := s.Errors[dev][list]
	return err, found
}

// FailedDevices returns the devices with at least one failed fetch, in
// inventory order.
func (s *Snapshot) FailedDevices() []DeviceID {
	var failed []DeviceID
	for _, dev := range s.Devices {
		if len(s.Errors[dev]) > 0 {
			failed = append(failed, dev)
		}
	}
	return failed
}
