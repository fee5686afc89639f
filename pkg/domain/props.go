package domain

// Typed views of Node.Props, one per node type.
// They are decoded from a defaulted props map by registry.Decode.

// Column describes one table column. Type is a SQL-ish declaration
// such as "TEXT", "varchar(120)" or "INTEGER PRIMARY KEY AUTOINCREMENT".
type Column struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	Type string `json:"type" yaml:"type" mapstructure:"type"`
}

// FormField is a single input of a page form.
type FormField struct {
	Name     string `json:"name" mapstructure:"name"`
	Type     string `json:"type,omitempty" mapstructure:"type"`
	Label    string `json:"label,omitempty" mapstructure:"label"`
	Required bool   `json:"required,omitempty" mapstructure:"required"`
}

// Form configures the optional form rendered on a page.
type Form struct {
	Enabled bool        `json:"enabled" mapstructure:"enabled"`
	Fields  []FormField `json:"fields" mapstructure:"fields"`
}

// UIPage is the typed view of a ui_page node.
type UIPage struct {
	Name                 string   `mapstructure:"name"`
	Title                string   `mapstructure:"title"`
	Route                string   `mapstructure:"route"`
	Content              string   `mapstructure:"content"`
	Consumes             []string `mapstructure:"consumes"`
	BindTable            string   `mapstructure:"bind_table"`
	BindFileStore        string   `mapstructure:"bind_file_store"`
	Form                 Form     `mapstructure:"form"`
	RequiresAuth         bool     `mapstructure:"requires_auth"`
	RequiresSubscription bool     `mapstructure:"requires_subscription"`
}

// RestAPI is the typed view of a rest_api node.
type RestAPI struct {
	Name           string `mapstructure:"name"`
	Method         string `mapstructure:"method"`
	Route          string `mapstructure:"route"`
	SampleResponse string `mapstructure:"sample_response"`
	RequiresAuth   bool   `mapstructure:"requires_auth"`
}

// DBTable is the typed view of a db_table node.
type DBTable struct {
	Name    string   `mapstructure:"name"`
	Columns []Column `mapstructure:"columns"`
}

// Auth is the typed view of an auth node.
type Auth struct {
	Name        string   `mapstructure:"name"`
	Strategy    string   `mapstructure:"strategy"`
	Roles       []string `mapstructure:"roles"`
	UserTable   string   `mapstructure:"user_table"`
	UserColumns []Column `mapstructure:"user_columns"`
}

// Plan is one subscription tier.
type Plan struct {
	Name     string   `json:"name" mapstructure:"name"`
	Price    float64  `json:"price" mapstructure:"price"`
	Interval string   `json:"interval" mapstructure:"interval"`
	Features []string `json:"features,omitempty" mapstructure:"features"`
}

// Payment is the typed view of a payment node.
type Payment struct {
	Name      string `mapstructure:"name"`
	Provider  string `mapstructure:"provider"`
	Plans     []Plan `mapstructure:"plans"`
	TrialDays int    `mapstructure:"trial_days"`
	Currency  string `mapstructure:"currency"`
}

// FileStore is the typed view of a file_store node.
type FileStore struct {
	Name         string   `mapstructure:"name"`
	Provider     string   `mapstructure:"provider"`
	LocalPath    string   `mapstructure:"local_path"`
	AllowedTypes []string `mapstructure:"allowed_types"`
	MaxSizeMB    int      `mapstructure:"max_size_mb"`
	Bucket       *string  `mapstructure:"bucket"`
}

// AgentTool is the typed view of an agent_tool node.
type AgentTool struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
}
