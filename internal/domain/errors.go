package domain

import (
	"errors"

	"github.com/allanpk716/docx_filler/pkg/docx"
)

var (
	ErrNoDocumentLoaded = errors.New("未加载文档")
	// ErrInvalidSourceDocument 文档解析失败
	ErrInvalidSourceDocument = docx.ErrInvalidDocument
	ErrMalformedDataTree     = errors.New("数据格式错误")
	ErrPlaceholderUnresolved = errors.New("占位符无法解析")
	ErrTextNotFound          = errors.New("未找到文本")
	ErrBookmarkNotFound      = errors.New("未找到书签")
	ErrMalformedParagraph    = errors.New("段落文本不是有效的UTF-8")
	ErrUnknownOperation      = errors.New("未知的操作类型")
)
