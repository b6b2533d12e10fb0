package database

type PostRepository interface {
	RecordPost(record PostRecord) (int64, error)
	ListPosts(limit int) ([]PostRecord, error)
	CountPosts() (int, error)
}
