// Package apperr содержит таксономию ошибок движка. Вызывающий код
// различает ошибки через errors.Is, а граница HTTP по ним выбирает между
// "неверный запрос" и "временно недоступно, повторите".
package apperr

import "errors"

var (
	// ErrInvalidQuery - некорректный радиус или параметры фильтра
	ErrInvalidQuery = errors.New("invalid query")

	// ErrMissingLocation - сообщение без координат не может быть кластеризовано
	ErrMissingLocation = errors.New("report has no location")

	// ErrInvalidClassification - вывод классификатора вне диапазона или с
	// неизвестным значением перечисления
	ErrInvalidClassification = errors.New("invalid classifier output")

	// ErrIncidentRaceConflict - гонка "существует ли инцидент поблизости";
	// всегда разрешается детерминированным слиянием и не покидает движок
	ErrIncidentRaceConflict = errors.New("incident race conflict")

	// ErrStoreUnavailable - долговременное хранилище или индекс недоступны
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrClassifierTimeout - внешний классификатор не ответил в срок
	ErrClassifierTimeout = errors.New("classifier timeout")

	// ErrRetryScheduled - обработка не уложилась в дедлайн; сообщение
	// поставлено в очередь асинхронных повторов, не потеряно
	ErrRetryScheduled = errors.New("report queued for async retry")

	// ErrAlertNotFound - оповещение с указанным id не существует
	ErrAlertNotFound = errors.New("alert not found")

	// ErrInvalidTransition - запрошенный переход статуса оповещения запрещен
	ErrInvalidTransition = errors.New("invalid alert status transition")
)
