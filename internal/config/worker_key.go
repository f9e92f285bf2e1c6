package config

type WorkerKeyStruct struct {
	AttemptEventsQueue string
	ResultMailQueue    string
}

var WorkerKey = &WorkerKeyStruct{
	AttemptEventsQueue: "attempt_events_queue",
	ResultMailQueue:    "result_mail_queue",
}
