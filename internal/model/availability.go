package model

// FlightAvailability is the response of GET /flights/:flightID/available-seats.
// Every seat of the cabin appears in exactly one of the three lists.
type FlightAvailability struct {
	FlightID  string   `json:"flightID"`
	Available []string `json:"available"`
	Held      []string `json:"held"`
	Confirmed []string `json:"confirmed"`
	Total     int      `json:"total"`
}
