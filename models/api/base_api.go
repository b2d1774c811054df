package apimodels

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
)

type Response struct {
	Status  string      `json:"status"`            //результат обработки fail/success
	Code    string      `json:"code,omitempty"`    //код ошибки, см. apperrors
	Message string      `json:"message,omitempty"` //сообщение ошибки
	Data    interface{} `json:"data,omitempty"`    //данные ответа
}

func NewError(message string) Response {
	return Response{
		Status:  StatusFail,
		Message: message,
	}
}

// NewCodedError - ответ с машиночитаемым кодом, по которому клиент решает, повторять ли запрос
func NewCodedError(code, message string) Response {
	resp := NewError(message)
	resp.Code = code
	return resp
}

func NewResponse(data interface{}) Response {
	return Response{
		Status: StatusSuccess,
		Data:   data,
	}
}

func (r Response) IsSuccess() bool {
	return r.Status == StatusSuccess
}
