package device

import "bluescout/classify"

// Statistics summarizes a snapshot.
type Statistics struct {
	Total     int
	BLE       int
	Classic   int
	Bonded    int
	Phones    int
	Audio     int
	Wearables int
	Unknown   int
}

func Stats(records []Record) Statistics {
	st := Statistics{Total: len(records)}
	for _, r := range records {
		if r.BLE {
			st.BLE++
		} else {
			st.Classic++
		}
		if r.Bonded() {
			st.Bonded++
		}
		switch {
		case r.Type == classify.Phone:
			st.Phones++
		case r.Type.IsAudio():
			st.Audio++
		case r.Type == classify.Wearable:
			st.Wearables++
		case r.Type == classify.Unknown:
			st.Unknown++
		}
	}
	return st
}
