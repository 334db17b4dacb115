package apierr

// Response 统一响应包装：{success, message, result}
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Result  any    `json:"result"`
}

// OK 成功响应
func OK(result any) Response {
	return Response{Success: true, Message: "", Result: result}
}

// Fail 失败响应，result 固定为 null
func Fail(err error) Response {
	return Response{Success: false, Message: string(CodeOf(err)), Result: nil}
}
