package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/league --output domain/league --outpkg leaguemock --filename repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name UnresolvedRepository --dir ../domain/scrape --output domain/scrape --outpkg scrapemock --filename unresolved_repository_mock.go
