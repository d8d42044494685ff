package config

type WorkerKeyStruct struct {
	PersistProctorQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistProctorQueue: "persist_proctor_queue",
}
