package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// 错误分类
const (
	CodeConnection     = "ConnectionError"     // 数据源不可达
	CodeQuery          = "QueryError"          // 查询被数据源拒绝
	CodeRender         = "RenderError"         // 图表绘制失败
	CodeWrite          = "WriteError"          // 工作簿写入失败
	CodeDuplicateSheet = "DuplicateSheetError" // 截断后的工作表名冲突
	CodeCatalog        = "CatalogError"        // 报表目录定义不合法
	CodeView           = "ViewError"           // 交互视图构建/展示失败
)

// Err 带分类码的错误
type Err struct {
	Code  string
	Title string
	Data  map[string]any
	Cause error
}

func (e Err) Error() string {
	fields := []string{e.Code + ": " + e.Title}

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := e.Data[k]
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		fields = append(fields, fmt.Sprintf("%s = %+v", k, v))
	}
	if e.Cause != nil {
		fields = append(fields, "cause = "+e.Cause.Error())
	}

	return strings.Join(fields, "; ")
}

func (e Err) Unwrap() error {
	return e.Cause
}

// ErrIs 判断错误链中是否含有指定分类码
func ErrIs(err error, code string) bool {
	var e Err
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// ErrCode 取错误链中的分类码，无分类返回空串
func ErrCode(err error) string {
	var e Err
	if !errors.As(err, &e) {
		return ""
	}
	return e.Code
}

func newErr(code, title string, cause error, data map[string]any) error {
	return Err{Code: code, Title: title, Data: data, Cause: cause}
}

// ConnectionErr 数据源不可达
func ConnectionErr(title string, cause error, data map[string]any) error {
	return newErr(CodeConnection, title, cause, data)
}

// QueryErr 查询失败
func QueryErr(title string, cause error, data map[string]any) error {
	return newErr(CodeQuery, title, cause, data)
}

// RenderErr 绘图失败
func RenderErr(title string, cause error, data map[string]any) error {
	return newErr(CodeRender, title, cause, data)
}

// WriteErr 工作簿写入失败
func WriteErr(title string, cause error, data map[string]any) error {
	return newErr(CodeWrite, title, cause, data)
}

// DuplicateSheetErr 工作表名冲突
func DuplicateSheetErr(title string, data map[string]any) error {
	return newErr(CodeDuplicateSheet, title, nil, data)
}

// CatalogErr 报表定义不合法
func CatalogErr(title string, data map[string]any) error {
	return newErr(CodeCatalog, title, nil, data)
}

// ViewErr 交互视图失败
func ViewErr(title string, cause error, data map[string]any) error {
	return newErr(CodeView, title, cause, data)
}
