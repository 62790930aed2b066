package model

type TranscribeResponse struct {
	JobId  string  `json:"job_id"`
	Report Report  `json:"report"`
	BPM    float64 `json:"bpm"`
	Midi   []byte  `json:"midi,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"detail"`
	Stage string `json:"stage,omitempty"`
}
