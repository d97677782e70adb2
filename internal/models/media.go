package models

import "io"

// MediaFile — загружаемый файл (из multipart-формы).
type MediaFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// StoredObject — результат загрузки в объектное хранилище.
type StoredObject struct {
	Key string
	URL string
}
