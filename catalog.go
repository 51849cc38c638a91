package kkt

// busyErrorCode is the one error byte that does not terminate an exchange:
// the device is still processing the previous command and the caller
// should back off and retry rather than surface it to the application.
const busyErrorCode = 0x50

// generalErrors catalogs the device-level error codes that apply
// regardless of whether a fiscal storage unit is fitted.
var generalErrors = map[byte]string{
	0x01: "неверный пароль",
	0x02: "неверный номер оператора",
	0x03: "выход за границы массива",
	0x04: "неверный параметр",
	0x05: "недостаточно денег в кассе для выплаты",
	0x06: "неверный код товара",
	0x10: "команда не поддерживается в данном подрежиме",
	0x20: "нет фискальной памяти",
	0x21: "фискальная память переполнена",
	0x22: "фискальная память выдала ошибку",
	0x23: "смена уже открыта",
	0x24: "смена не открыта",
	0x25: "смена превышает 24 часа",
	0x26: "ошибка связи с фискальной памятью",
	0x30: "ошибка принтера: нет бумаги",
	0x31: "ошибка принтера: нет связи",
	0x32: "ошибка резчика",
	0x40: "переполнение операции в чеке",
	0x41: "переполнение итога чека",
	busyErrorCode: "предыдущая команда не выполнена до конца",
	0x51: "обрыв печати чека",
	0x52: "команда не поддерживается в данной модели",
	0x53: "контроль даты и времени",
	0x5B: "чек не открыт",
	0x5C: "чек закрыт",
	0x5D: "чек открыт другого типа",
	0x5E: "документ закрыт, но не выведен на печать",
	0x60: "требуется сброс питания",
	0xFF: "исполнение команды протокола не предусмотрено логикой работы ККТ",
}

// fnErrors catalogs errors that originate in the fiscal storage unit
// (the "FN"). Where a code is defined in both tables, the FN meaning
// takes precedence: the storage unit is the more specific source.
var fnErrors = map[byte]string{
	0xA0: "ФН непригоден",
	0xA1: "в текущем ФН уже найдены ошибки",
	0xA2: "закончен срок эксплуатации ФН",
	0xA3: "архив ФН переполнен",
	0xA4: "неверные дата и время",
	0xA5: "нет транспортного соединения с ФН",
	0xA6: "исчерпан ресурс КС в ФН",
	0xA7: "исчерпан срок действия ключей КС в ФН",
	0xA8: "требуется обновление программного обеспечения ФН",
	0xA9: "не выполнена первая фискализация ФН",
	0xAA: "закрыта смена ФН, требуется отчет о закрытии",
	0xAB: "превышено время ожидания ответа от ФН",
	0xAC: "неверный формат сообщения, передаваемого в ФН",
	0xAD: "недопустимое значение параметров сообщения ФН",
	0xAE: "фискальный документ ФН превышен по размеру",
	0xAF: "переполнение данных ФН при передаче сообщения",
}

// lookupDeviceError resolves a nonzero response error byte into a
// DeviceError, checking the FN table first. A code present in neither
// table still yields a DeviceError rather than a generic error, so
// callers can always inspect Code.
func lookupDeviceError(code byte) *DeviceError {
	if msg, ok := fnErrors[code]; ok {
		return &DeviceError{Code: code, Source: "fiscal storage", Message: msg}
	}
	if msg, ok := generalErrors[code]; ok {
		return &DeviceError{Code: code, Source: "device", Message: msg}
	}
	return &DeviceError{Code: code, Source: "device", Message: "unknown device error code"}
}
