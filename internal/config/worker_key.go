package config

type WorkerKeyStruct struct {
	SMSOutboxQueue string
}

var WorkerKey = &WorkerKeyStruct{
	SMSOutboxQueue: "sms_outbox_queue",
}
