package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"30"`
	PublicURL       string `envconfig:"PUBLIC_URL" default:"http://localhost:8080"`

	// Remote food API
	APIBaseURL         string `envconfig:"API_BASE_URL"`
	APITimeoutSec      uint   `envconfig:"API_TIMEOUT_SEC" default:"15"`
	APIIdentityHeaders bool   `envconfig:"API_IDENTITY_HEADERS" default:"false"` // legacy x-user-* headers

	// Identity provider: cognito or firebase
	AuthProvider string `envconfig:"AUTH_PROVIDER" default:"cognito"`

	// Cognito Auth
	CognitoUserPoolID   string `envconfig:"COGNITO_USER_POOL_ID"`
	CognitoClientID     string `envconfig:"COGNITO_CLIENT_ID"`
	CognitoClientSecret string `envconfig:"COGNITO_CLIENT_SECRET"`
	CognitoIssuerURL    string `envconfig:"COGNITO_ISSUER_URL"`
	CognitoDomain       string `envconfig:"COGNITO_DOMAIN"` // hosted UI, e.g. https://foodshare.auth.us-east-1.amazoncognito.com

	// Firebase Auth
	FirebaseProjectID       string `envconfig:"FIREBASE_PROJECT_ID"`
	FirebaseAPIKey          string `envconfig:"FIREBASE_API_KEY"`
	FirebaseCredentialsFile string `envconfig:"FIREBASE_CREDENTIALS_FILE"`
	FirebaseCredentialsB64  string `envconfig:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`

	// Google sign-in when the provider talks to Google directly (firebase)
	GoogleClientID     string `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET"`

	// Image host: imgbb or s3
	ImageHost        string `envconfig:"IMAGE_HOST" default:"imgbb"`
	ImgBBKey         string `envconfig:"IMGBB_KEY"`
	ImgBBEndpoint    string `envconfig:"IMGBB_ENDPOINT" default:"https://api.imgbb.com/1/upload"`
	S3BucketName     string `envconfig:"S3_BUCKET_NAME"`
	S3PublicBaseURL  string `envconfig:"S3_PUBLIC_BASE_URL"`
	MaxUploadSizeMiB int64  `envconfig:"MAX_UPLOAD_SIZE_MIB" default:"8"`

	// Mounted views kept for follow-up actions from the same page
	ViewTTLSec        uint `envconfig:"VIEW_TTL_SEC" default:"900"`
	ViewMaxPerSession int  `envconfig:"VIEW_MAX_PER_SESSION" default:"16"`
	ViewMaxTotal      int  `envconfig:"VIEW_MAX_TOTAL" default:"10000"`
	ViewSweepSec      uint `envconfig:"VIEW_SWEEP_SEC" default:"60"`
	SessionMaxAgeSec  int  `envconfig:"SESSION_MAX_AGE_SEC" default:"604800"` // 7 days

	// Cookie encryption keys, base64 encoded. Run `foodshare keys` to
	// generate a pair.
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
