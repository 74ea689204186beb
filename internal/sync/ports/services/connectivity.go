package services

// Connectivity - сигнал связности устройства.
//
// Online читается синхронно; Events доставляет переходы состояния
// (true - устройство стало онлайн, false - оффлайн). Канал
// буферизован; промежуточные переходы могут быть потеряны, актуальным
// считается последнее значение.
type Connectivity interface {
	Online() bool
	Events() <-chan bool
}
