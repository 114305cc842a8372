package composer

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("podcast-studio-be/internal/composer")
