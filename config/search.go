package config

// Elasticsearch is the secondary tier's connection settings, consumed by
// tierdrivers/search/elastic.
type Elasticsearch struct {
	Addresses []string `json:"addresses" mapstructure:"addresses" ini:"addresses" yaml:"addresses" default:"[\"http://127.0.0.1:9200\"]"`
	Username  string   `json:"username" mapstructure:"username" ini:"username" yaml:"username"`
	Password  string   `json:"password" mapstructure:"password" ini:"password" yaml:"password"`
}

func (e *Elasticsearch) setDefault() {
	cv.SetDefault("elasticsearch.addresses", []string{"http://127.0.0.1:9200"})
	cv.SetDefault("elasticsearch.username", "")
	cv.SetDefault("elasticsearch.password", "")
}
